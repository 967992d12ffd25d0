// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/highlight"
)

const (
	// ContentTypeXLSX is the MIME type of the generated workbook.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	highlightsSheet = "Highlights"
	summarySheet    = "Summary"
)

// HighlightsWorkbook renders an extraction result as an .xlsx workbook with a
// "Highlights" sheet (one row per record) and a "Summary" sheet.
func HighlightsWorkbook(res *highlight.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", highlightsSheet); err != nil {
		return nil, wrap("rename sheet", err)
	}

	header := []interface{}{"Paragraph", "Run", "Color", "Text"}
	if err := f.SetSheetRow(highlightsSheet, "A1", &header); err != nil {
		return nil, wrap("write header", err)
	}
	for i, rec := range res.HighlightedTexts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, wrap("cell name", err)
		}
		row := []interface{}{rec.ParagraphIndex, rec.RunIndex, rec.HighlightColor, rec.Text}
		if err := f.SetSheetRow(highlightsSheet, cell, &row); err != nil {
			return nil, wrap("write row", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, wrap("create style", err)
	}
	if err := f.SetCellStyle(highlightsSheet, "A1", "D1", bold); err != nil {
		return nil, wrap("style header", err)
	}
	if err := f.SetColWidth(highlightsSheet, "D", "D", 80); err != nil {
		return nil, wrap("set width", err)
	}
	if err := f.SetPanes(highlightsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, wrap("freeze header", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, wrap("create summary", err)
	}
	summary := [][]interface{}{
		{"Filename", res.Filename},
		{"Highlighted texts", res.HighlightedTextCount},
		{"Processed at", res.ProcessedAt.UTC().Format(time.RFC3339Nano)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, wrap("write summary", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A3", bold); err != nil {
		return nil, wrap("style summary", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
		return nil, wrap("set width", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, wrap("write workbook", err)
	}
	return buf.Bytes(), nil
}

func wrap(step string, err error) error {
	return fmt.Errorf("%w: xlsx %s: %v", apperr.ErrInternal, step, err)
}
