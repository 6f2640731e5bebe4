package backend

import (
	"encoding/json"
	"fmt"
)

// SearchResponse is the subset of a SearxNG JSON answer the CLI shows.
type SearchResponse struct {
	Query           string         `json:"query"`
	NumberOfResults float64        `json:"number_of_results"`
	Results         []SearchResult `json:"results"`
	Suggestions     []string       `json:"suggestions"`
}

// SearchResult is one hit of a SearchResponse.
type SearchResult struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Engine  string   `json:"engine"`
	Engines []string `json:"engines"`
	Score   float64  `json:"score"`
}

// Decode parses the body as a SearxNG answer.
func (r *Result) Decode() (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.Unmarshal(r.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}
