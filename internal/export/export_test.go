package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/docxpress/internal/highlight"
)

func TestHighlightsWorkbook(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 890, time.UTC)
	res := highlight.NewResult("report.docx", []highlight.Record{
		{Text: "first", HighlightColor: "yellow", ParagraphIndex: 0, RunIndex: 2},
		{Text: "=SUM(A1)", HighlightColor: "cyan", ParagraphIndex: 2, RunIndex: 0},
	}, at)

	data, err := HighlightsWorkbook(res)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Highlights", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Highlights")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Paragraph", "Run", "Color", "Text"},
		{"0", "2", "yellow", "first"},
		{"2", "0", "cyan", "=SUM(A1)"},
	}, rows)

	formula, err := f.GetCellFormula("Highlights", "D3")
	require.NoError(t, err)
	assert.Empty(t, formula, "text is stored as a string, not a formula")

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Filename", "report.docx"},
		{"Highlighted texts", "2"},
		{"Processed at", "2025-03-04T05:06:07.00000089Z"},
	}, summary)
}

func TestHighlightsWorkbook_NoRecords(t *testing.T) {
	data, err := HighlightsWorkbook(highlight.NewResult("empty.docx", nil, time.Now()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Highlights")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Paragraph", "Run", "Color", "Text"}}, rows)
}
