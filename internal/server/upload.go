// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/docxpress/internal/apperr"
)

// FormField is the multipart field holding an uploaded file.
const FormField = "file"

// upload is a validated file from a multipart request.
type upload struct {
	Filename string
	Data     []byte
}

// readUpload reads the "file" field, enforcing maxBytes on the whole body and
// the expected extension (case-insensitive).
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64, ext, extMessage string) (*upload, error) {
	// allow for multipart framing around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)

	file, header, err := r.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, tooLargeError(maxBytes)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, apperr.Invalid("No file uploaded")
		default:
			return nil, apperr.Invalid(fmt.Sprintf("Invalid multipart request: %v", err))
		}
	}
	defer file.Close()

	name := filepath.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apperr.Invalid("No file uploaded")
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		return nil, apperr.Invalid(extMessage)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", apperr.ErrInternal, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLargeError(maxBytes)
	}
	if len(data) == 0 {
		return nil, apperr.Invalid("Empty file uploaded")
	}
	return &upload{Filename: name, Data: data}, nil
}

// readBody reads a raw request body with the same size limit.
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLargeError(maxBytes)
		}
		return nil, apperr.Invalid(fmt.Sprintf("Failed to read request body: %v", err))
	}
	return data, nil
}

func tooLargeError(maxBytes int64) error {
	return apperr.TooLarge(fmt.Sprintf("File exceeds the %d byte upload limit", maxBytes))
}
