// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON output, optionally to a file,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (InfoKV, WarnKV, etc.).
//
// Every component of the agent takes a context and logs through the logger it
// carries, so a tick of the poller or a push operation is tagged consistently.
package logger
