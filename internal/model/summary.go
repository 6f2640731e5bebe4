package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TagSeparator joins normalized tags in the frontier's tags column.
const TagSeparator = ", "

// Tag is a single summarizer tag. The LLM may return tags either as bare
// strings or as {"name": "..."} objects; both decode into Tag.
type Tag struct {
	Name string
}

// UnmarshalJSON accepts a JSON string or an object with a "name" field.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Name = s
		return nil
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tag must be a string or an object with a name: %w", err)
	}
	t.Name = obj.Name
	return nil
}

// MarshalJSON encodes the tag as a plain string.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Name)
}

// PageSummary is what the summarizer produces for one page.
// The zero value is the "empty result" used whenever summarization fails.
type PageSummary struct {
	Summary string `json:"summary"`
	Tags    []Tag  `json:"tags"`
}

// IsEmpty reports whether the summary carries no information.
func (p PageSummary) IsEmpty() bool {
	return p.Summary == "" && len(p.Tags) == 0
}

// TagNames returns the tag names with forward slashes removed.
func (p PageSummary) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, strings.ReplaceAll(t.Name, "/", ""))
	}
	return names
}

// JoinedTags returns the persisted tags column value.
func (p PageSummary) JoinedTags() string {
	return strings.Join(p.TagNames(), TagSeparator)
}
