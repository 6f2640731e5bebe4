package model

import "testing"

// TestParseStatus tests conversion from persisted strings.
func TestParseStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Status
		wantErr  bool
	}{
		{"to_visit", StatusToVisit, false},
		{"visited", StatusVisited, false},
		{"IGNORED", StatusIgnored, false},
		{" downloaded ", StatusDownloaded, false},
		{"in_progress", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStatus(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseStatus(%q) expected error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseStatus(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

// TestStatusIsTerminal tests that only to_visit allows further transitions.
func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if StatusToVisit.IsTerminal() {
		t.Error("to_visit must not be terminal")
	}
	for _, s := range []Status{StatusVisited, StatusIgnored, StatusDownloaded} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

// TestURLRecordTagList tests splitting of the persisted tag column.
func TestURLRecordTagList(t *testing.T) {
	t.Parallel()

	t.Run("empty tags", func(t *testing.T) {
		t.Parallel()
		r := URLRecord{}
		if got := r.TagList(); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("joined tags", func(t *testing.T) {
		t.Parallel()
		r := URLRecord{Tags: "go, crawler, llm"}
		got := r.TagList()
		if len(got) != 3 || got[0] != "go" || got[2] != "llm" {
			t.Errorf("unexpected tags %v", got)
		}
	})
}
