package ics

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles iCalendar (ICS) documents.
type Normaliser struct{}

// New creates a new ICS normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/calendar"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a calendar file to a normalised document. Each event
// becomes a readable block with its time, location and participants so
// the details are searchable as text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	data := string(raw.Content)
	if !strings.Contains(strings.ToUpper(data), "BEGIN:VCALENDAR") {
		return nil, domain.Errorf(domain.CodeParse, "content is not an iCalendar file")
	}

	events, calName := parseCalendar(data)

	var blocks []string
	for _, ev := range events {
		blocks = append(blocks, renderEvent(ev))
	}
	content := strings.TrimSpace(strings.Join(blocks, "\n"))

	title := ""
	if len(events) > 0 {
		title = events[0].summary
		if title != "" && len(events) > 1 {
			title += " (and more)"
		}
	}
	if title == "" {
		title = calName
	}
	if title == "" {
		title = extractTitleFromURI(raw.URI)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		Format:    raw.MIMEType,
		URI:       raw.URI,
		Title:     title,
		Content:   content,
		Metadata:  copyMetadata(raw.Metadata),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// event holds the properties extracted from one VEVENT block.
type event struct {
	summary     string
	description string
	location    string
	start       string
	end         string
	organizer   string
	attendees   []string
}

// parseCalendar walks the unfolded property lines, collecting VEVENT
// blocks and the calendar display name.
func parseCalendar(data string) (events []event, calName string) {
	var cur *event
	for _, line := range unfoldLines(data) {
		name, value := splitProperty(line)
		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				cur = &event{}
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") && cur != nil {
				events = append(events, *cur)
				cur = nil
			}
		case "X-WR-CALNAME":
			calName = decodeValue(value)
		case "SUMMARY":
			if cur != nil {
				cur.summary = decodeValue(value)
			}
		case "DESCRIPTION":
			if cur != nil {
				cur.description = decodeValue(value)
			}
		case "LOCATION":
			if cur != nil {
				cur.location = decodeValue(value)
			}
		case "DTSTART":
			if cur != nil {
				cur.start = value
			}
		case "DTEND":
			if cur != nil {
				cur.end = value
			}
		case "ORGANIZER":
			if cur != nil {
				cur.organizer = contactLabel(value)
			}
		case "ATTENDEE":
			if cur != nil {
				cur.attendees = append(cur.attendees, contactLabel(value))
			}
		}
	}
	return events, calName
}

// renderEvent formats one event as a readable text block.
func renderEvent(ev event) string {
	var b strings.Builder
	if ev.summary != "" {
		b.WriteString("Event: ")
		b.WriteString(ev.summary)
		b.WriteString("\n")
	}
	if ev.start != "" {
		b.WriteString("When: ")
		b.WriteString(formatDateTime(ev.start))
		if ev.end != "" {
			b.WriteString(" to ")
			b.WriteString(formatDateTime(ev.end))
		}
		b.WriteString("\n")
	}
	if ev.location != "" {
		b.WriteString("Where: ")
		b.WriteString(ev.location)
		b.WriteString("\n")
	}
	if ev.organizer != "" {
		b.WriteString("Organizer: ")
		b.WriteString(ev.organizer)
		b.WriteString("\n")
	}
	if len(ev.attendees) > 0 {
		b.WriteString("Attendees: ")
		b.WriteString(strings.Join(ev.attendees, ", "))
		b.WriteString("\n")
	}
	if ev.description != "" {
		b.WriteString("\n")
		b.WriteString(ev.description)
		b.WriteString("\n")
	}
	return b.String()
}

// unfoldLines splits the content into lines, joining continuation lines
// that start with a space or tab back onto their parent.
func unfoldLines(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	var lines []string
	for _, line := range raw {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitProperty splits "NAME;PARAMS:VALUE" into the bare property name
// and its value. Lines without a colon yield an empty name.
func splitProperty(line string) (name, value string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", ""
	}
	name, value = line[:i], line[i+1:]
	if j := strings.Index(name, ";"); j >= 0 {
		name = name[:j]
	}
	return strings.ToUpper(strings.TrimSpace(name)), value
}

// decodeValue resolves the escape sequences ICS uses for text values.
func decodeValue(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+1 < len(value) {
			switch value[i+1] {
			case 'n', 'N':
				b.WriteByte('\n')
			case ',', ';', '\\':
				b.WriteByte(value[i+1])
			default:
				b.WriteByte(value[i])
				b.WriteByte(value[i+1])
			}
			i++
			continue
		}
		b.WriteByte(value[i])
	}
	return b.String()
}

// formatDateTime renders ICS date and date-time values in readable form.
// Values that parse as neither are returned unchanged.
func formatDateTime(value string) string {
	if t, err := time.Parse("20060102", value); err == nil {
		return t.Format("January 2, 2006")
	}
	v := strings.TrimSuffix(value, "Z")
	if t, err := time.Parse("20060102T150405", v); err == nil {
		return t.Format("January 2, 2006 at 3:04 PM")
	}
	return value
}

// extractEmail pulls a bare address out of a mailto: URI or plain value.
func extractEmail(value string) string {
	v := value
	if len(v) >= len("mailto:") && strings.EqualFold(v[:len("mailto:")], "mailto:") {
		v = v[len("mailto:"):]
	}
	if strings.Contains(v, "@") && !strings.ContainsAny(v, " \t") {
		return v
	}
	return ""
}

// contactLabel prefers the email address for a participant, falling back
// to the raw decoded value for entries without one.
func contactLabel(value string) string {
	if email := extractEmail(value); email != "" {
		return email
	}
	return decodeValue(value)
}

// extractTitleFromURI extracts a title from the file URI.
func extractTitleFromURI(uri string) string {
	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
