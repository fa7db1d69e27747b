package chunk

// Filter restricts retrieval by chunk metadata. Empty fields do not filter.
type Filter struct {
	Category   string
	DocumentID string
}

// Query is a nearest-neighbour request.
type Query struct {
	TopK   int
	Filter Filter
}

// Match is a retrieved chunk with its cosine similarity in [0,1].
type Match struct {
	Chunk Chunk
	Score float64
}

// Failure records one chunk that could not be indexed.
type Failure struct {
	ChunkID string
	Err     error
}

// Report summarizes one upsert call.
type Report struct {
	Indexed int
	Failed  []Failure
}
