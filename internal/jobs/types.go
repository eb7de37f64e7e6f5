package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Record is the authoritative job as served by the jobs API.
type Record struct {
	Number        string   `json:"jobNumber"`
	Name          string   `json:"jobName"`
	Description   string   `json:"description,omitempty"`
	Stage         string   `json:"stage,omitempty"`
	Status        string   `json:"status,omitempty"`
	UpdateDue     string   `json:"updateDue,omitempty"`
	LiveDate      string   `json:"liveDate,omitempty"`
	WithClient    bool     `json:"withClient,omitempty"`
	ClientCode    string   `json:"clientCode,omitempty"`
	Update        string   `json:"update,omitempty"`
	LastUpdated   string   `json:"lastUpdated,omitempty"`
	UpdateHistory []string `json:"updateHistory,omitempty"`
	ChannelURL    string   `json:"channelUrl,omitempty"`
}

// Key is the record identity used for lookups.
func (r Record) Key() string {
	return Normalize(r.Number)
}

// Client returns the client code, falling back to the job number prefix.
func (r Record) Client() string {
	if c := strings.TrimSpace(r.ClientCode); c != "" {
		return strings.ToUpper(c)
	}
	fields := strings.Fields(r.Number)
	if len(fields) > 1 {
		return strings.ToUpper(fields[0])
	}
	n := Normalize(r.Number)
	end := strings.IndexFunc(n, unicode.IsDigit)
	if end <= 0 {
		return ""
	}
	return n[:end]
}

// Normalize drops all whitespace and upper-cases, so "tow 088" and "TOW088"
// name the same job.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Ref is what the assistant sends for a job: either a bare job number or, in
// the older reply shape, the full record.
type Ref struct {
	Number string
	Record *Record
}

func NumberRef(n string) Ref { return Ref{Number: n} }

func RecordRef(r Record) Ref { return Ref{Record: &r} }

func (r Ref) IsRecord() bool { return r.Record != nil }

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	return json.Marshal(r.Number)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	switch data[0] {
	case '"':
		var n string
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode job reference: %w", err)
		}
		*r = Ref{Number: n}
	case '{':
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode job record: %w", err)
		}
		*r = Ref{Record: &rec}
	default:
		return fmt.Errorf("decode job reference: unexpected %q", data[0])
	}
	return nil
}
