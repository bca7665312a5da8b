// Package alerts implements the gRPC control surface of the alert agent.
//
// The service is described by hand over protobuf well-known types: alerts,
// statistics, status and preferences travel as structpb.Struct, identifiers
// as wrapperspb.StringValue and counters as wrapperspb.Int32Value. The
// presentation layer (the CLI or a UI shell) drives the agent through it.
package alerts
