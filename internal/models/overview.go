package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Overview is the description sent to the media server. It is either a text
// value or the explicit "no description" marker, which is serialized as JSON
// false so the media server clears any previous overview.
type Overview struct {
	text    string
	present bool
}

// OverviewText returns an Overview holding text. The text may be empty.
func OverviewText(text string) Overview {
	return Overview{text: text, present: true}
}

// NoOverview returns the "no description" marker.
func NoOverview() Overview {
	return Overview{}
}

// Text returns the overview text and whether the overview carries text at all.
func (o Overview) Text() (string, bool) {
	return o.text, o.present
}

// IsEmpty reports whether o is the "no description" marker.
func (o Overview) IsEmpty() bool {
	return !o.present
}

// String returns the text, or a placeholder for the marker.
func (o Overview) String() string {
	if !o.present {
		return "<no description>"
	}
	return o.text
}

// MarshalJSON implements json.Marshaler interface
func (o Overview) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("false"), nil
	}
	return json.Marshal(o.text)
}

// UnmarshalJSON implements json.Unmarshaler interface
func (o *Overview) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		*o = NoOverview()
		return nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return fmt.Errorf("overview must be a string or false: %w", err)
	}
	*o = OverviewText(text)
	return nil
}
