package reconciler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// idNamespace scopes synthesized alert ids.
//
//nolint:gochecknoglobals // Constant namespace, uuid has no const constructor.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:downtime-alerts:alert"))

// timeLayouts are the timestamp formats accepted from the feed.
//
//nolint:gochecknoglobals // Read-only lookup table.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// unixMillisThreshold separates unix seconds from unix milliseconds.
const unixMillisThreshold = 1e12

// errUnexpectedFeed is returned when the feed is neither an array nor an envelope.
var errUnexpectedFeed = errors.New("unexpected alert feed shape")

// Normalizer converts raw feed records into domain alerts.
type Normalizer struct {
	// aliases is the field alias table.
	aliases Aliases
	// now stamps records without a creation time.
	now func() time.Time
}

// NewNormalizer creates a normalizer over the given alias table, or the
// default table when nil.
func NewNormalizer(aliases Aliases) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}

	return &Normalizer{
		aliases: aliases,
		now:     time.Now,
	}
}

// DecodeFeed parses a feed body that is either an array of records or an
// object wrapping one. Records that are not objects are skipped.
func (n *Normalizer) DecodeFeed(body []byte) ([]domain.Alert, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var root any
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode alert feed: %w", err)
	}

	records, err := feedRecords(root)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.Alert, 0, len(records))
	for _, record := range records {
		raw, ok := record.(map[string]any)
		if !ok {
			continue
		}

		alerts = append(alerts, n.Normalize(raw))
	}

	return alerts, nil
}

// feedRecords unwraps the record array from the decoded feed.
func feedRecords(root any) ([]any, error) {
	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range feedEnvelopeKeys {
			if records, ok := v[key].([]any); ok {
				return records, nil
			}
		}

		return nil, fmt.Errorf("%w: object without alert array", errUnexpectedFeed)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnexpectedFeed, root)
	}
}

// Normalize maps one raw record to an alert, defaulting field by field.
func (n *Normalizer) Normalize(raw map[string]any) domain.Alert {
	a := domain.Alert{
		Type:                   domain.TypeNewDowntime,
		DeclarationID:          n.str(raw, FieldDeclarationID),
		TicketNumber:           n.str(raw, FieldTicketNumber),
		WorkstationName:        n.str(raw, FieldWorkstationName),
		LineName:               n.str(raw, FieldLineName),
		MachineName:            n.str(raw, FieldMachineName),
		ZoneName:               n.str(raw, FieldZoneName),
		DeclaredByName:         n.str(raw, FieldDeclaredByName),
		AssignedTechnicianName: n.str(raw, FieldAssignedTechnician),
		Priority:               domain.ParsePriority(strings.ToLower(n.str(raw, FieldPriority))),
		Status:                 n.status(raw),
	}

	if t := domain.Type(strings.ToLower(n.str(raw, FieldType))); t.Valid() {
		a.Type = t
	}

	createdAt, hasCreatedAt := n.time(raw, FieldCreatedAt)
	if readAt, ok := n.time(raw, FieldReadAt); ok {
		a.ReadAt = &readAt
	}

	a.ID = n.str(raw, FieldID)
	if a.ID == "" {
		a.ID = synthesizeID(&a, createdAt, raw)
	}

	a.CreatedAt = createdAt
	if !hasCreatedAt {
		a.CreatedAt = n.now()
	}

	a.Title = n.str(raw, FieldTitle)
	if a.Title == "" {
		a.Title = domain.Title(a.Type)
	}

	a.Message = n.str(raw, FieldMessage)
	if a.Message == "" {
		a.Message = domain.Message(a.Type, a.WorkstationName)
	}

	return a
}

// status reads the explicit status, or derives it from the read/isNew pair.
func (n *Normalizer) status(raw map[string]any) domain.Status {
	if st, ok := domain.ParseStatus(strings.ToLower(n.str(raw, FieldStatus))); ok {
		return st
	}

	if read, ok := n.bool(raw, FieldRead); ok && read {
		return domain.StatusRead
	}

	if isNew, ok := n.bool(raw, FieldIsNew); ok && !isNew {
		return domain.StatusRead
	}

	return domain.StatusUnread
}

// synthesizeID derives a stable id from the declaration, type and creation
// time, or from the whole record when no declaration is referenced.
func synthesizeID(a *domain.Alert, createdAt time.Time, raw map[string]any) string {
	var name string

	if a.DeclarationID != "" {
		name = a.DeclarationID + "|" + string(a.Type) + "|" + createdAt.UTC().Format(time.RFC3339Nano)
	} else {
		// Map keys are sorted by encoding/json, so equal records give equal ids.
		canonical, _ := json.Marshal(raw) //nolint:errchkjson // Decoded JSON always re-encodes.
		name = string(canonical)
	}

	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// lookup returns the first alias present in raw.
func (n *Normalizer) lookup(raw map[string]any, field Field) (any, bool) {
	for _, alias := range n.aliases[field] {
		if v, ok := walk(raw, alias); ok && v != nil {
			return v, true
		}
	}

	return nil, false
}

// walk follows a dotted path through nested objects.
func walk(raw map[string]any, path string) (any, bool) {
	current := raw

	for {
		head, rest, nested := strings.Cut(path, ".")

		v, ok := current[head]
		if !ok {
			return nil, false
		}

		if !nested {
			return v, true
		}

		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}

		current, path = next, rest
	}
}

func (n *Normalizer) str(raw map[string]any, field Field) string {
	v, ok := n.lookup(raw, field)
	if !ok {
		return ""
	}

	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

func (n *Normalizer) bool(raw map[string]any, field Field) (bool, bool) {
	v, ok := n.lookup(raw, field)
	if !ok {
		return false, false
	}

	switch value := v.(type) {
	case bool:
		return value, true
	case string:
		parsed, err := strconv.ParseBool(value)
		return parsed, err == nil
	case json.Number:
		return value.String() != "0", true
	default:
		return false, false
	}
}

func (n *Normalizer) time(raw map[string]any, field Field) (time.Time, bool) {
	v, ok := n.lookup(raw, field)
	if !ok {
		return time.Time{}, false
	}

	switch value := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, value); err == nil {
				return parsed, true
			}
		}
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return unixTime(f), true
		}
	case float64:
		return unixTime(value), true
	}

	return time.Time{}, false
}

// unixTime accepts seconds or milliseconds since the epoch.
func unixTime(f float64) time.Time {
	if f >= unixMillisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}

	return time.Unix(int64(f), 0).UTC()
}
