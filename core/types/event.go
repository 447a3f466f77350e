package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Season     uint64            `json:"season,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute value or an empty string.
func (e *Event) Attr(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
