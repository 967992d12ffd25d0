// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package highlight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/ooxml"
)

// Record is one highlighted run.
type Record struct {
	Text           string `json:"text"`
	HighlightColor string `json:"highlight_color"`
	ParagraphIndex int    `json:"paragraph_index"`
	RunIndex       int    `json:"run_index"`
}

// Result is the response body for an extraction request.
type Result struct {
	Success              bool      `json:"success"`
	Filename             string    `json:"filename"`
	HighlightedTextCount int       `json:"highlighted_text_count"`
	HighlightedTexts     []Record  `json:"highlighted_texts"`
	ProcessedAt          time.Time `json:"processed_at"`
}

// NewResult wraps records; the count always equals len(records).
func NewResult(filename string, records []Record, processedAt time.Time) *Result {
	if records == nil {
		records = []Record{}
	}
	return &Result{
		Success:              true,
		Filename:             filename,
		HighlightedTextCount: len(records),
		HighlightedTexts:     records,
		ProcessedAt:          processedAt,
	}
}

// Extract returns every run of documentXML carrying a recognised, non-null
// highlight, paragraph-major then run order. Empty highlighted runs are kept.
func Extract(documentXML []byte) ([]Record, error) {
	body, err := ooxml.Parse(documentXML)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for _, p := range body.Paragraphs {
		for _, r := range p.Runs {
			color, ok := r.HighlightColor()
			if !ok {
				continue
			}
			records = append(records, Record{
				Text:           r.Text,
				HighlightColor: string(color),
				ParagraphIndex: p.Index,
				RunIndex:       r.Index,
			})
		}
	}
	return records, nil
}

// Cache stores extraction results by content key.
type Cache interface {
	Get(ctx context.Context, key string) ([]Record, bool, error)
	Set(ctx context.Context, key string, records []Record) error
}

// ContentKey identifies a document by the SHA-256 of its bytes.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Service extracts highlights from uploaded .docx files.
type Service struct {
	cache Cache
	now   func() time.Time
}

// NewService creates a service. cache may be nil.
func NewService(cache Cache) *Service {
	return &Service{cache: cache, now: time.Now}
}

// Process opens data as a .docx and extracts its highlighted runs, consulting
// the cache first. Cache failures are logged and otherwise ignored.
func (s *Service) Process(ctx context.Context, filename string, data []byte) (*Result, error) {
	key := ContentKey(data)

	if s.cache != nil {
		records, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warnf("highlight: cache get %s: %v", key[:12], err)
		} else if ok {
			logger.Debugf("highlight: cache hit for %s (%s)", filename, key[:12])
			return NewResult(filename, records, s.now()), nil
		}
	}

	doc, err := ooxml.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	records, err := Extract(doc.XML())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, records); err != nil {
			logger.Warnf("highlight: cache set %s: %v", key[:12], err)
		}
	}

	logger.Printf("highlight: %s: %d highlighted runs", filename, len(records))
	return NewResult(filename, records, s.now()), nil
}
