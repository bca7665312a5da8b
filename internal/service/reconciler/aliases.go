package reconciler

// Field is a normalized alert field.
type Field string

// Normalized fields.
const (
	FieldID                 Field = "id"
	FieldType               Field = "type"
	FieldPriority           Field = "priority"
	FieldStatus             Field = "status"
	FieldIsNew              Field = "isNew"
	FieldRead               Field = "read"
	FieldTitle              Field = "title"
	FieldMessage            Field = "message"
	FieldDeclarationID      Field = "declarationId"
	FieldTicketNumber       Field = "ticketNumber"
	FieldWorkstationName    Field = "workstationName"
	FieldLineName           Field = "lineName"
	FieldMachineName        Field = "machineName"
	FieldZoneName           Field = "zoneName"
	FieldDeclaredByName     Field = "declaredByName"
	FieldAssignedTechnician Field = "assignedTechnicianName"
	FieldCreatedAt          Field = "createdAt"
	FieldReadAt             Field = "readAt"
)

// Aliases maps every field to the payload keys tried in order.
// Dotted keys walk nested objects.
type Aliases map[Field][]string

// DefaultAliases returns the alias table matching the maintenance backend.
func DefaultAliases() Aliases {
	return Aliases{
		FieldID:            {"id", "alert_id", "alertId", "uuid"},
		FieldType:          {"type", "alert_type", "alertType", "event_type", "eventType"},
		FieldPriority:      {"priority", "alert_priority", "alertPriority", "declaration.priority"},
		FieldStatus:        {"status", "alert_status", "alertStatus"},
		FieldIsNew:         {"is_new", "isNew"},
		FieldRead:          {"read", "is_read", "isRead"},
		FieldTitle:         {"title"},
		FieldMessage:       {"message", "body", "description"},
		FieldDeclarationID: {"declaration_id", "declarationId", "declaration.id", "declaration"},
		FieldTicketNumber: {
			"ticket_number", "ticketNumber", "declaration.ticket_number", "declaration.ticketNumber",
		},
		FieldWorkstationName: {
			"workstation_name", "workstationName", "workstation.name",
			"declaration.workstation_name", "declaration.workstation.name",
		},
		FieldLineName: {
			"line_name", "lineName", "line.name", "declaration.line_name", "declaration.line.name",
		},
		FieldMachineName: {
			"machine_name", "machineName", "machine.name", "declaration.machine_name", "declaration.machine.name",
		},
		FieldZoneName: {
			"zone_name", "zoneName", "zone.name", "declaration.zone_name", "declaration.zone.name",
		},
		FieldDeclaredByName: {
			"declared_by_name", "declaredByName", "declared_by.full_name", "declaredBy.fullName",
			"declaration.declared_by_name", "declaration.declared_by.full_name",
		},
		FieldAssignedTechnician: {
			"assigned_technician_name", "assignedTechnicianName", "technician_name", "technicianName",
			"assigned_technician.full_name", "assignedTechnician.fullName",
			"declaration.assigned_technician_name", "declaration.assigned_technician.full_name",
		},
		FieldCreatedAt: {"created_at", "createdAt", "timestamp", "declaration.created_at"},
		FieldReadAt:    {"read_at", "readAt"},
	}
}

// Add appends aliases to a field, after the existing ones.
func (a Aliases) Add(field Field, keys ...string) {
	a[field] = append(a[field], keys...)
}

// feedEnvelopeKeys are the object keys that may wrap the alert array.
//
//nolint:gochecknoglobals // Read-only lookup table.
var feedEnvelopeKeys = []string{"alerts", "results", "data"}
