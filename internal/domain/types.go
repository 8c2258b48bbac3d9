package domain

// LoaderKind identifies which parser produced a Document.
type LoaderKind string

const (
	LoaderPlainText LoaderKind = "text"
	LoaderMarkdown  LoaderKind = "markdown"
	LoaderPDF       LoaderKind = "pdf"
)

// Document is the raw content of one loaded file (or one PDF page).
// Immutable; discarded after splitting.
type Document struct {
	Text       string
	SourcePath string
	Kind       LoaderKind
	// Page is the 1-based page number for PDF documents, 0 otherwise.
	Page int
}

// Chunk is a contiguous slice of a Document's text.
// StartIndex is the character offset into the source document.
type Chunk struct {
	Text       string
	SourcePath string
	StartIndex int
	Page       int
}

// IndexRecord is the persisted unit in the vector index: an embedding
// vector plus the metadata needed to reconstruct the chunk on retrieval.
// Re-upserting the same ID overwrites the stored record.
type IndexRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// QueryResult is one ranked hit from a similarity query.
type QueryResult struct {
	ID         string
	Text       string
	SourcePath string
	Score      float64
	Metadata   map[string]string
}

// IndexStats describes the remote index as reported by the service.
type IndexStats struct {
	VectorCount int
	Dimension   int
}

// Metadata keys written on every upserted record.
const (
	MetaText       = "text"
	MetaSourcePath = "source_path"
	MetaStartIndex = "start_index"
	MetaPage       = "page"
)
