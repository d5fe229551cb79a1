package core

import (
	"errors"
	"slices"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     NewDocument("resume.txt", "Go developer"),
			wantErr: nil,
		},
		{
			name:    "empty id",
			doc:     NewDocument("", "Go developer"),
			wantErr: ErrEmptyDocumentID,
		},
		{
			name:    "whitespace content",
			doc:     NewDocument("resume.txt", "  \n\t "),
			wantErr: ErrEmptyContent,
		},
		{
			name:    "hash mismatch",
			doc:     Document{ID: "resume.txt", Content: "Go developer", ContentHash: "deadbeef"},
			wantErr: ErrContentHashMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error should wrap ErrInvalidDocument")
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(" Python, sql ,python,, Go ")

	if got := q.Terms(); !slices.Equal(got, []string{"Python", "sql", "Go"}) {
		t.Errorf("Terms() = %v", got)
	}
	if got := q.Normalized(); !slices.Equal(got, []string{"go", "python", "sql"}) {
		t.Errorf("Normalized() = %v", got)
	}
	if got := q.String(); got != "Python, sql, Go" {
		t.Errorf("String() = %q", got)
	}
	if got := q.EmbeddingText(); got != "Required skills and experience: Python, sql, Go" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestParseQuery_Empty(t *testing.T) {
	for _, s := range []string{"", " ", ",, ,"} {
		q := ParseQuery(s)
		if !q.IsEmpty() {
			t.Errorf("ParseQuery(%q) should be empty, got %v", s, q.Terms())
		}
		if !errors.Is(ValidateQuery(q), ErrEmptyQuery) {
			t.Errorf("ValidateQuery(%q) should return ErrEmptyQuery", s)
		}
		if q.EmbeddingText() != "" {
			t.Errorf("EmbeddingText() for empty query should be empty")
		}
	}
}

func TestQuery_InnerWhitespace(t *testing.T) {
	q := NewQuery("machine   learning", "Machine Learning")
	if got := q.Terms(); !slices.Equal(got, []string{"machine learning"}) {
		t.Errorf("Terms() = %v", got)
	}
}
