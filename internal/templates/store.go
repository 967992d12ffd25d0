// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docxpress/internal/apperr"
)

// Extension is the only template file type served.
const Extension = ".docx"

// Store loads template documents by base name.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// CleanName normalises a template name. Names without an extension get
// ".docx"; paths and other extensions are rejected.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("Template name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", apperr.Invalid(fmt.Sprintf("Invalid template name %q", name))
	}

	ext := filepath.Ext(name)
	switch {
	case ext == "":
		name += Extension
	case !strings.EqualFold(ext, Extension):
		return "", apperr.Invalid("Template must be a DOCX document")
	}
	return name, nil
}

// IsTemplateFile reports whether a file name looks like a usable template.
// Word lock files (~$name.docx) are skipped.
func IsTemplateFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), Extension) && !strings.HasPrefix(base, "~$") && !strings.HasPrefix(base, ".")
}

// DirStore serves templates from a local directory.
type DirStore struct {
	dir string
}

// NewDirStore creates a store over dir. The directory may not exist yet.
func NewDirStore(dir string) (*DirStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template dir: %w", err)
	}
	return &DirStore{dir: abs}, nil
}

// Dir returns the absolute template directory.
func (s *DirStore) Dir() string { return s.dir }

// Get reads a template file.
func (s *DirStore) Get(_ context.Context, name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound(fmt.Sprintf("Template %s not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read template %s: %v", apperr.ErrInternal, name, err)
	}
	return data, nil
}

// List returns template names in the directory, sorted.
func (s *DirStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list templates: %v", apperr.ErrInternal, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
