package client

// DocType is the public document category.
type DocType string

// Document categories.
const (
	// DocTypeSource marks tender requirements (RFPs, terms of reference).
	DocTypeSource DocType = "source"
	// DocTypeCompany marks material about the bidding company.
	DocTypeCompany DocType = "company"
)

// UploadResult describes an accepted upload.
type UploadResult struct {
	DocumentID    string `json:"documentId"`
	DocumentName  string `json:"documentName"`
	ChunkCount    int    `json:"chunkCount"`
	IndexedChunks int    `json:"indexedChunks"`
	FailedChunks  int    `json:"failedChunks"`
}

// Document is stored document metadata.
type Document struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	DocType    DocType `json:"docType"`
	FileName   string  `json:"fileName"`
	MIMEType   string  `json:"mimeType"`
	Size       int64   `json:"size"`
	UploadedAt int64   `json:"uploadedAt"`
	Binary     bool    `json:"binary"`
}

// GenerateRequest starts a generation. Every field is optional.
type GenerateRequest struct {
	Prompt            string   `json:"prompt,omitempty"`
	AdditionalContext string   `json:"additionalContext,omitempty"`
	CompanyContext    string   `json:"companyContext,omitempty"`
	Sections          []string `json:"sections,omitempty"`
}

// SearchOptions narrow a search.
type SearchOptions struct {
	TopK       int     `json:"topK,omitempty"`
	DocType    DocType `json:"docType,omitempty"`
	DocumentID string  `json:"documentId,omitempty"`
}

// SearchResult is one retrieved passage.
type SearchResult struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	DocType    DocType `json:"docType"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
