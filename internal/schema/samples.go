package schema

// UploadResponse is returned after a sample has been stored.
type UploadResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// HTTPMetadata mirrors the HTTP metadata stored with a sample.
type HTTPMetadata struct {
	ContentType string `json:"contentType,omitempty"`
}

// ObjectSummary describes one stored sample in a listing.
type ObjectSummary struct {
	Key          string       `json:"key"`
	Size         int64        `json:"size"`
	Uploaded     string       `json:"uploaded"`
	HTTPMetadata HTTPMetadata `json:"httpMetadata"`
}

// ObjectInfo is the metadata of a single stored sample.
type ObjectInfo struct {
	ObjectSummary
	ETag string `json:"etag"`
}

// ListResponse is one page of stored samples. Cursor is set only when
// Truncated is true.
type ListResponse struct {
	Objects           []ObjectSummary `json:"objects"`
	Truncated         bool            `json:"truncated"`
	Cursor            string          `json:"cursor,omitempty"`
	DelimitedPrefixes []string        `json:"delimitedPrefixes"`
}
