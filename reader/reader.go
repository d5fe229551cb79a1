// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reader extracts plain text from candidate documents.
//
// A Registry maps lower-cased file extensions to Readers. NewRegistry
// installs readers for .txt, .pdf, .docx, .html, .htm and .md. Legacy .doc
// files are recognized but always rejected with ErrUnsupportedFormat.
package reader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat indicates no reader handles the file's extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoText indicates the document contained no extractable text.
	ErrNoText = errors.New("no text extracted")
)

// Reader extracts the text of one file.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (string, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry dispatches reads by file extension. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

// NewRegistry returns a registry with the built-in readers installed.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register(".txt", ReaderFunc(readText))
	r.Register(".pdf", ReaderFunc(readPDF))
	r.Register(".docx", ReaderFunc(readDOCX))
	r.Register(".html", ReaderFunc(readHTML))
	r.Register(".htm", ReaderFunc(readHTML))
	r.Register(".md", ReaderFunc(readMarkdown))
	return r
}

// NewEmptyRegistry returns a registry with no readers.
func NewEmptyRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register installs rd for ext, replacing any previous reader.
func (r *Registry) Register(ext string, rd Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[normalizeExt(ext)] = rd
}

// Supports reports whether a reader is installed for ext.
func (r *Registry) Supports(ext string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.readers[normalizeExt(ext)]
	return ok
}

// Extensions returns the installed extensions in ascending order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Read extracts the text of path with the reader registered for its
// extension. Whitespace-only results are reported as ErrNoText.
func (r *Registry) Read(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	if ext == ".doc" {
		return "", fmt.Errorf("%w: legacy .doc files are not supported, convert to .docx", ErrUnsupportedFormat)
	}

	r.mu.RLock()
	rd, ok := r.readers[ext]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := rd.Read(ctx, path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
