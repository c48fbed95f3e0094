package domain

// MaxTopK is the largest number of matches a single search may request.
const MaxTopK = 1000

// SearchMatch is one ranked hit from the vector database. Immutable once created.
type SearchMatch struct {
	id       string
	distance float64
	metadata map[string]any
}

// NewSearchMatch creates a match. The metadata map is copied.
func NewSearchMatch(id string, distance float64, metadata map[string]any) SearchMatch {
	var md map[string]any
	if len(metadata) > 0 {
		md = make(map[string]any, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
	}
	return SearchMatch{id: id, distance: distance, metadata: md}
}

// ID returns the opaque row identifier.
func (m SearchMatch) ID() string { return m.id }

// Distance returns the cosine distance (lower is more similar).
func (m SearchMatch) Distance() float64 { return m.distance }

// Metadata returns a copy of the attribute payload.
func (m SearchMatch) Metadata() map[string]any {
	if m.metadata == nil {
		return nil
	}
	out := make(map[string]any, len(m.metadata))
	for k, v := range m.metadata {
		out[k] = v
	}
	return out
}

// Text returns the "text" attribute when present.
func (m SearchMatch) Text() string {
	if s, ok := m.metadata["text"].(string); ok {
		return s
	}
	return ""
}
