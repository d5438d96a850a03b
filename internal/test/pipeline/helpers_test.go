package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"insight-backend/internal/inference"
	"insight-backend/internal/kvstore"
	"insight-backend/internal/pipeline"
)

// fakeObjectStore records Put calls and mints deterministic URLs.
type fakeObjectStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://storage.local/" + key, nil
}

// fakeCompleter routes every inference call through fn.
type fakeCompleter struct {
	fn func(req inference.CompletionRequest) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, req inference.CompletionRequest) (string, error) {
	return f.fn(req)
}

func staticCompleter(text string) *fakeCompleter {
	return &fakeCompleter{fn: func(inference.CompletionRequest) (string, error) {
		return text, nil
	}}
}

func newTable(t *testing.T) *kvstore.Store {
	t.Helper()
	store, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func uploadFile(name, contentType string, data []byte) pipelineFile {
	return pipelineFile{name: name, contentType: contentType, data: data}
}

type pipelineFile struct {
	name        string
	contentType string
	data        []byte
}

// xlsxBytes builds a one-sheet workbook from rows; the first row is the
// header.
func xlsxBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func embedRows(n int) [][]interface{} {
	rows := [][]interface{}{{"name", "amount"}}
	for i := 0; i < n; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("item-%d", i), i * 10})
	}
	return rows
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
func (failingReader) Close() error             { return nil }

func openerFor(f pipelineFile) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
}

func toUpload(f pipelineFile) pipeline.UploadFile {
	return pipeline.UploadFile{
		Filename:    f.name,
		ContentType: f.contentType,
		Open:        openerFor(f),
	}
}

func toUploads(files ...pipelineFile) []pipeline.UploadFile {
	uploads := make([]pipeline.UploadFile, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, toUpload(f))
	}
	return uploads
}
