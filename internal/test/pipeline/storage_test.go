package pipeline_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight-backend/internal/pipeline"
)

func TestStorageStage_StoresBatch(t *testing.T) {
	objects := &fakeObjectStore{}
	stage := pipeline.NewStorageStage(objects)

	images := toUploads(
		uploadFile("front.jpg", "image/jpeg", []byte("jpeg-bytes")),
		uploadFile("back.png", "image/png", []byte("png-bytes")),
	)
	excel := toUpload(uploadFile("data.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("xlsx-bytes")))
	documents := toUploads(uploadFile("notes.txt", "text/plain", []byte("some notes")))

	result, err := stage.Store(context.Background(), "20240102_120000_Report", images, &excel, documents)
	require.NoError(t, err)

	require.Len(t, result.Images, 2)
	assert.Equal(t, "front.jpg", result.Images[0].Filename)
	assert.Equal(t, 0, result.Images[0].UploadIndex)
	assert.Equal(t, 1, result.Images[1].UploadIndex)
	assert.Equal(t, "https://storage.local/20240102_120000_Report/images/0_front.jpg", result.Images[0].StorageURL)

	require.NotNil(t, result.Spreadsheet)
	assert.Equal(t, "https://storage.local/20240102_120000_Report/excel/data.xlsx", result.Spreadsheet.StorageURL)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "https://storage.local/20240102_120000_Report/documents/notes.txt", result.Documents[0].StorageURL)

	// Every stored file keeps its bytes available for analysis.
	require.Len(t, result.Contents, 4)
	assert.Equal(t, []byte("jpeg-bytes"), result.Contents[result.Images[0].ID].Data)
	assert.Equal(t, []byte("xlsx-bytes"), result.Contents[result.Spreadsheet.ID].Data)

	assert.Equal(t, []string{
		"20240102_120000_Report/images/0_front.jpg",
		"20240102_120000_Report/images/1_back.png",
		"20240102_120000_Report/excel/data.xlsx",
		"20240102_120000_Report/documents/notes.txt",
	}, objects.keys)
}

func TestStorageStage_SkipsInvalidFiles(t *testing.T) {
	objects := &fakeObjectStore{}
	stage := pipeline.NewStorageStage(objects)

	images := toUploads(
		uploadFile("script.js", "text/javascript", []byte("not an image")),
		uploadFile("photo.jpg", "image/jpeg", []byte("jpeg-bytes")),
	)
	excel := toUpload(uploadFile("archive.zip", "application/zip", []byte("zip")))
	documents := toUploads(uploadFile("binary.exe", "application/octet-stream", []byte("mz")))

	result, err := stage.Store(context.Background(), "folder", images, &excel, documents)
	require.NoError(t, err)

	require.Len(t, result.Images, 1)
	assert.Equal(t, "photo.jpg", result.Images[0].Filename)
	assert.Equal(t, 1, result.Images[0].UploadIndex)
	assert.Nil(t, result.Spreadsheet)
	assert.Empty(t, result.Documents)
	assert.Equal(t, []string{"folder/images/1_photo.jpg"}, objects.keys)
}

func TestStorageStage_SkipsUnreadableUpload(t *testing.T) {
	objects := &fakeObjectStore{}
	stage := pipeline.NewStorageStage(objects)

	broken := pipeline.UploadFile{
		Filename:    "broken.jpg",
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			return failingReader{}, nil
		},
	}
	good := toUpload(uploadFile("good.jpg", "image/jpeg", []byte("ok")))

	result, err := stage.Store(context.Background(), "folder", []pipeline.UploadFile{broken, good}, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "good.jpg", result.Images[0].Filename)
}

func TestStorageStage_WriteFailureIsFatal(t *testing.T) {
	objects := &fakeObjectStore{err: errors.New("bucket unavailable")}
	stage := pipeline.NewStorageStage(objects)

	images := toUploads(uploadFile("photo.jpg", "image/jpeg", []byte("jpeg")))

	_, err := stage.Store(context.Background(), "folder", images, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestStorageStage_SpreadsheetByExtension(t *testing.T) {
	objects := &fakeObjectStore{}
	stage := pipeline.NewStorageStage(objects)

	// Browsers often send xlsx uploads as octet-stream; the extension decides.
	excel := toUpload(uploadFile("report.xlsx", "application/octet-stream", []byte("xlsx")))

	result, err := stage.Store(context.Background(), "folder", nil, &excel, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Spreadsheet)
	assert.Equal(t, "report.xlsx", result.Spreadsheet.Filename)
}

func TestStorageStage_SkipsUnlabeledNonSpreadsheet(t *testing.T) {
	objects := &fakeObjectStore{}
	stage := pipeline.NewStorageStage(objects)

	// Octet-stream without a spreadsheet extension fails validation and is
	// skipped, the same as any other invalid file.
	excel := toUpload(uploadFile("data.bin", "application/octet-stream", []byte("not a workbook")))
	images := toUploads(uploadFile("photo.jpg", "image/jpeg", []byte("jpeg")))

	result, err := stage.Store(context.Background(), "folder", images, &excel, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Spreadsheet)
	require.Len(t, result.Images, 1)
	assert.Equal(t, []string{"folder/images/0_photo.jpg"}, objects.keys)
}
