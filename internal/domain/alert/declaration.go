package alert

// Declaration is the declaring side's view of a new downtime, used to
// surface an alert locally before the remote round-trip completes.
type Declaration struct {
	// ID is the remote declaration identifier.
	ID string
	// TicketNumber is the declaration ticket.
	TicketNumber string
	// WorkstationName is the stopped workstation.
	WorkstationName string
	// LineName is the production line.
	LineName string
	// MachineName is the stopped machine.
	MachineName string
	// ZoneName is the factory zone.
	ZoneName string
	// DeclaredByName is the declaring operator.
	DeclaredByName string
	// Priority of the alert, medium when empty.
	Priority Priority
	// Type of the alert, new_downtime when empty.
	Type Type
}
