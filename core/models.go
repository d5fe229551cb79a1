package core

import (
	"encoding/hex"
	"slices"

	"github.com/go-crypt/x/blake2b"
)

// Document is the extracted text of one candidate file.
// Documents are immutable once read.
type Document struct {
	// ID identifies the document within a corpus. It is the file name.
	ID string `json:"id"`

	// Content is the full extracted text.
	Content string `json:"content"`

	// ContentHash is the hex BLAKE2b-256 digest of Content.
	ContentHash string `json:"content_hash"`
}

// NewDocument creates a Document and computes its content hash.
func NewDocument(id, content string) Document {
	return Document{
		ID:          id,
		Content:     content,
		ContentHash: HashContent(content),
	}
}

// HashContent returns the hex encoded BLAKE2b-256 digest of text.
// Identical text always produces the identical hash.
func HashContent(text string) string {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Corpus maps document IDs to documents for a single request.
// Iteration order carries no meaning; use IDs or Documents for a stable order.
type Corpus map[string]Document

// NewCorpus builds a corpus from docs, rejecting duplicate IDs.
func NewCorpus(docs ...Document) (Corpus, error) {
	c := make(Corpus, len(docs))
	for _, doc := range docs {
		if err := c.Add(doc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts doc into the corpus.
func (c Corpus) Add(doc Document) error {
	if _, exists := c[doc.ID]; exists {
		return &DuplicateDocumentError{ID: doc.ID}
	}
	c[doc.ID] = doc
	return nil
}

// Len returns the number of documents.
func (c Corpus) Len() int {
	return len(c)
}

// IDs returns the document IDs in ascending order.
func (c Corpus) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Documents returns the documents ordered by ID.
func (c Corpus) Documents() []Document {
	docs := make([]Document, 0, len(c))
	for _, id := range c.IDs() {
		docs = append(docs, c[id])
	}
	return docs
}

// Subset returns a new corpus holding only the listed IDs that exist in c.
func (c Corpus) Subset(ids []string) Corpus {
	sub := make(Corpus, len(ids))
	for _, id := range ids {
		if doc, ok := c[id]; ok {
			sub[id] = doc
		}
	}
	return sub
}
