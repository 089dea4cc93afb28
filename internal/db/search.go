package db

// TagFilter matches documents whose TAG field equals Value.
type TagFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Vector       []float32
	K            int
	Exclude      []TagFilter
	ReturnFields []string
}

// TagQuery looks documents up by an exact TAG value without touching vector space.
type TagQuery struct {
	IndexName    string
	Field        string
	Value        string
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity in [0,1] for KNN queries and zero otherwise.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
