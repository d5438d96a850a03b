package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"insight-backend/internal/inference"
	"insight-backend/internal/models"
)

const (
	// digestRowLimit bounds the prompt-side row digest; insightRowLimit
	// bounds the stored per-row sample.
	digestRowLimit  = 10
	insightRowLimit = 5
)

var (
	ErrSpreadsheetParse = errors.New("failed to parse spreadsheet")
	ErrSpreadsheetEmpty = errors.New("spreadsheet has no data rows")
)

const spreadsheetInstruction = `Please analyze this Excel data and provide insights including:
1. Data summary and patterns
2. Key metrics and statistics
3. Anomalies or notable observations
4. Recommendations based on the data`

// SpreadsheetStage evaluates the stored spreadsheet as a whole: one parse,
// one inference call, one bounded insight sample. There is no per-cell
// partial-success mode, so any failure here is fatal to the stage.
type SpreadsheetStage struct {
	completer inference.Completer
}

func NewSpreadsheetStage(completer inference.Completer) *SpreadsheetStage {
	return &SpreadsheetStage{completer: completer}
}

// Analyze returns nil (no error) when the batch carried no spreadsheet.
// An unparsable or zero-row file is an error, never an empty result.
func (s *SpreadsheetStage) Analyze(ctx context.Context, stored *StorageResult, projectContext string) (*models.SpreadsheetAnalysis, error) {
	if stored.Spreadsheet == nil {
		return nil, nil
	}
	content, ok := stored.Contents[stored.Spreadsheet.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no stored content for %q", ErrSpreadsheetParse, stored.Spreadsheet.Filename)
	}

	columns, dataRows, err := parseSheet(content.Data)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(
		contextLine(projectContext),
		fmt.Sprintf("Excel Data Summary: %s", digest(columns, dataRows)),
		fmt.Sprintf("Column Headers: %s", strings.Join(columns, ", ")),
		fmt.Sprintf("Total Rows: %d", len(dataRows)),
		"",
		spreadsheetInstruction,
	)
	text, err := s.completer.Complete(ctx, inference.CompletionRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("spreadsheet stage: inference failed for %q: %w", stored.Spreadsheet.Filename, err)
	}

	return &models.SpreadsheetAnalysis{
		Filename:     stored.Spreadsheet.Filename,
		StorageURL:   stored.Spreadsheet.StorageURL,
		Context:      projectContext,
		AnalysisText: text,
		RowCount:     len(dataRows),
		ColumnCount:  len(columns),
		Columns:      columns,
		Insights:     insights(columns, dataRows),
	}, nil
}

// parseSheet reads the first sheet, treating the first row as the header.
func parseSheet(data []byte) (columns []string, dataRows [][]string, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpreadsheetParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrSpreadsheetParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpreadsheetParse, err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrSpreadsheetEmpty
	}
	return rows[0], rows[1:], nil
}

// digest renders the first digestRowLimit data rows as "col: val" lines
// joined with semicolons, for prompt-size control.
func digest(columns []string, dataRows [][]string) string {
	limit := len(dataRows)
	if limit > digestRowLimit {
		limit = digestRowLimit
	}
	lines := make([]string, 0, limit)
	for _, row := range dataRows[:limit] {
		pairs := make([]string, 0, len(columns))
		for c, col := range columns {
			pairs = append(pairs, fmt.Sprintf("%s: %s", col, cell(row, c)))
		}
		lines = append(lines, strings.Join(pairs, ", "))
	}
	return strings.Join(lines, "; ")
}

// insights samples the first insightRowLimit data rows with their original
// row index. Always a bounded sample, never the full row set.
func insights(columns []string, dataRows [][]string) []models.RowInsight {
	limit := len(dataRows)
	if limit > insightRowLimit {
		limit = insightRowLimit
	}
	sample := make([]models.RowInsight, 0, limit)
	for idx, row := range dataRows[:limit] {
		pairs := make([]string, 0, len(columns))
		for c, col := range columns {
			pairs = append(pairs, fmt.Sprintf("%s=%s", col, cell(row, c)))
		}
		sample = append(sample, models.RowInsight{
			RowIndex: idx,
			Summary:  fmt.Sprintf("Row %d: %s", idx, strings.Join(pairs, ", ")),
		})
	}
	return sample
}

// cell pads rows that excelize returns shorter than the header.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
