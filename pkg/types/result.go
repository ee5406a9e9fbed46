package types

// SearchResult is one assembled context window returned by a search
type SearchResult struct {
	URL      string  `json:"url"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	MimeType string  `json:"mime_type,omitempty"` // Empty when the document type is unknown
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.URL == "" {
		return ErrEmptyURL
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	if sr.Score < 0 {
		return ErrNegativeScore
	}

	return nil
}
