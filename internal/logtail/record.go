package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one decoded line of the client's JSON log.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]any
	Raw     string
}

// Structured reports whether the line decoded as a JSON log record.
func (r Record) Structured() bool {
	return r.Message != "" || r.Level != ""
}

// Parse decodes a slog JSON line. Lines that are not JSON objects come back
// with only Raw set.
func Parse(line string) Record {
	rec := Record{Raw: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return rec
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return rec
	}
	if ts, ok := fields["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Time = parsed
		}
	}
	rec.Level, _ = fields["level"].(string)
	rec.Message, _ = fields["msg"].(string)
	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "msg")
	if len(fields) > 0 {
		rec.Attrs = fields
	}
	return rec
}

// ParseLines decodes every line.
func ParseLines(lines []string) []Record {
	out := make([]Record, len(lines))
	for i, line := range lines {
		out[i] = Parse(line)
	}
	return out
}

// Format renders the record as "15:04:05 LEVEL msg key=value ...", keys
// sorted. Unstructured records render as their raw text.
func (r Record) Format() string {
	if !r.Structured() {
		return r.Raw
	}
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	level := strings.ToUpper(r.Level)
	if level == "" {
		level = "INFO"
	}
	fmt.Fprintf(&b, "%-5s %s", level, r.Message)

	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, r.Attrs[k])
	}
	return b.String()
}
