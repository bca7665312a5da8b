package alert

import "fmt"

// unknownWorkstation stands in for a missing workstation name.
const unknownWorkstation = "unknown workstation"

// Title returns the deterministic title for an alert type.
func Title(t Type) string {
	switch t {
	case TypeNewDowntime:
		return "New downtime declared"
	case TypeAcknowledged:
		return "Downtime acknowledged"
	case TypeTechnicianAssigned:
		return "Technician assigned"
	case TypeWorkStarted:
		return "Work started"
	case TypeResolved:
		return "Downtime resolved"
	case TypeEscalated:
		return "Downtime escalated"
	case TypeCritical:
		return "Critical downtime"
	default:
		return "Downtime update"
	}
}

// Message returns the deterministic message for an alert type and workstation.
func Message(t Type, workstation string) string {
	if workstation == "" {
		workstation = unknownWorkstation
	}

	switch t {
	case TypeNewDowntime:
		return fmt.Sprintf("A stoppage was declared on %s", workstation)
	case TypeAcknowledged:
		return fmt.Sprintf("The stoppage on %s was acknowledged", workstation)
	case TypeTechnicianAssigned:
		return fmt.Sprintf("A technician was assigned to %s", workstation)
	case TypeWorkStarted:
		return fmt.Sprintf("Repair work started on %s", workstation)
	case TypeResolved:
		return fmt.Sprintf("%s is back in production", workstation)
	case TypeEscalated:
		return fmt.Sprintf("The stoppage on %s was escalated", workstation)
	case TypeCritical:
		return fmt.Sprintf("Critical stoppage on %s requires immediate attention", workstation)
	default:
		return fmt.Sprintf("Update on %s", workstation)
	}
}
