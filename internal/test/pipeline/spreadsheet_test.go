package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight-backend/internal/inference"
	"insight-backend/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func storeSpreadsheet(t *testing.T, data []byte) *pipeline.StorageResult {
	t.Helper()
	stage := pipeline.NewStorageStage(&fakeObjectStore{})
	excel := toUpload(uploadFile("data.xlsx", xlsxContentType, data))
	result, err := stage.Store(context.Background(), "folder", nil, &excel, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Spreadsheet)
	return result
}

func TestSpreadsheetStage_NoSpreadsheet(t *testing.T) {
	stage := pipeline.NewSpreadsheetStage(staticCompleter("unused"))

	result, err := stage.Analyze(context.Background(), &pipeline.StorageResult{}, "")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSpreadsheetStage_Analyze(t *testing.T) {
	stored := storeSpreadsheet(t, xlsxBytes(t, embedRows(12)))

	var prompt string
	completer := &fakeCompleter{fn: func(req inference.CompletionRequest) (string, error) {
		prompt = req.Prompt
		assert.Nil(t, req.Attachment)
		return "spreadsheet findings", nil
	}}
	stage := pipeline.NewSpreadsheetStage(completer)

	result, err := stage.Analyze(context.Background(), stored, "sales data")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "data.xlsx", result.Filename)
	assert.Equal(t, "spreadsheet findings", result.AnalysisText)
	assert.Equal(t, 12, result.RowCount)
	assert.Equal(t, 2, result.ColumnCount)
	assert.Equal(t, []string{"name", "amount"}, result.Columns)

	// The stored sample is bounded and keeps original row indexes.
	require.Len(t, result.Insights, 5)
	assert.Equal(t, 0, result.Insights[0].RowIndex)
	assert.Equal(t, "Row 0: name=item-0, amount=0", result.Insights[0].Summary)
	assert.Equal(t, "Row 4: name=item-4, amount=40", result.Insights[4].Summary)

	// The prompt digest is bounded too, but the row count covers the file.
	assert.Contains(t, prompt, "Context: sales data")
	assert.Contains(t, prompt, "Total Rows: 12")
	assert.Contains(t, prompt, "Column Headers: name, amount")
	assert.Contains(t, prompt, "item-9")
	assert.NotContains(t, prompt, "item-10")
}

func TestSpreadsheetStage_EmptySheet(t *testing.T) {
	stored := storeSpreadsheet(t, xlsxBytes(t, [][]interface{}{{"name", "amount"}}))
	stage := pipeline.NewSpreadsheetStage(staticCompleter("unused"))

	_, err := stage.Analyze(context.Background(), stored, "")
	assert.ErrorIs(t, err, pipeline.ErrSpreadsheetEmpty)
}

func TestSpreadsheetStage_ParseFailure(t *testing.T) {
	stored := storeSpreadsheet(t, []byte("this is not a workbook"))
	stage := pipeline.NewSpreadsheetStage(staticCompleter("unused"))

	_, err := stage.Analyze(context.Background(), stored, "")
	assert.ErrorIs(t, err, pipeline.ErrSpreadsheetParse)
}

func TestSpreadsheetStage_InferenceFailureIsFatal(t *testing.T) {
	stored := storeSpreadsheet(t, xlsxBytes(t, embedRows(3)))
	completer := &fakeCompleter{fn: func(inference.CompletionRequest) (string, error) {
		return "", errors.New("model overloaded")
	}}
	stage := pipeline.NewSpreadsheetStage(completer)

	_, err := stage.Analyze(context.Background(), stored, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
