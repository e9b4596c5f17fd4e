// Package model contains domain models passed between layers.
package model

import "encoding/json"

// ID is an opaque incident identifier. The upstream feed emits numeric ids
// while sandbox callers may send strings, so both decode into the same type.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Location is the optional place information attached to an incident.
// GPS is carried as raw text; only the "0,0" sentinel is treated specially.
type Location struct {
	Name string `json:"name,omitempty"`
	GPS  string `json:"gps,omitempty"`
}

// Incident represents one reported event from the upstream police feed or a
// sandbox caller. Every field except ID may be missing or malformed; the
// scorer converts that into deductions rather than errors.
type Incident struct {
	ID          ID        `json:"id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Type        string    `json:"type,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Datetime    string    `json:"datetime,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// Assessment is the integrity verdict attached to an incident as
// qa_integrity. Immutable once computed; always replaced as a whole.
type Assessment struct {
	Score           int      `json:"score"`
	Reasons         []string `json:"reasons"`
	IsLowConfidence bool     `json:"isLowConfidence"`
}

// StoredIncident is the enriched record the pipeline persists and serves.
// Timestamp is epoch milliseconds and is the sole ordering/retention key.
type StoredIncident struct {
	Incident

	Integrity    Assessment `json:"qa_integrity"`
	Timestamp    int64      `json:"timestamp"`
	IsMockedData bool       `json:"isMockedData,omitempty"`

	// Key is the store document key; real incidents use the source id,
	// sandbox records a "mock_" prefixed id so the namespaces never collide.
	Key string `json:"-"`
}

// Merge combines a previously stored incident with a freshly ingested
// payload. Fields present in the new payload overwrite, fields absent from
// it survive. Absence is encoded as the zero value on the structured type,
// so a later payload cannot clear a field back to empty.
func Merge(existing, incoming Incident) Incident {
	out := existing
	if incoming.ID != "" {
		out.ID = incoming.ID
	}
	if incoming.Name != "" {
		out.Name = incoming.Name
	}
	if incoming.Type != "" {
		out.Type = incoming.Type
	}
	if incoming.Summary != "" {
		out.Summary = incoming.Summary
	}
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.URL != "" {
		out.URL = incoming.URL
	}
	if incoming.Datetime != "" {
		out.Datetime = incoming.Datetime
	}
	if incoming.Location != nil {
		merged := Location{}
		if existing.Location != nil {
			merged = *existing.Location
		}
		if incoming.Location.Name != "" {
			merged.Name = incoming.Location.Name
		}
		if incoming.Location.GPS != "" {
			merged.GPS = incoming.Location.GPS
		}
		out.Location = &merged
	} else if existing.Location != nil {
		cp := *existing.Location
		out.Location = &cp
	}
	return out
}
