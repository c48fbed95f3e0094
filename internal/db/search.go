package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Namespace    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single row hit from a search.
// Distance is cosine distance: 0 is identical, larger is less similar.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]any
}

// NamespaceInfo describes a namespace as reported by the backend.
// Dimensions is 0 when the backend does not expose it.
type NamespaceInfo struct {
	Name        string
	ApproxCount int64
	Dimensions  int
}
