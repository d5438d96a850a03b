package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"insight-backend/internal/models"
)

// StoredFile is one successfully stored upload. ID is a per-item handle
// minted by the storage stage; filenames are not guaranteed unique within
// a batch, so content lookups go through ID instead.
type StoredFile struct {
	ID          string
	Filename    string
	StorageURL  string
	ContentType string
	UploadIndex int
}

type FileContent struct {
	Data        []byte
	ContentType string
}

// StorageResult carries the stored references plus the request-scoped byte
// buffers for the analysis stages. The content map is written only by the
// storage stage; downstream stages treat it as read-only.
type StorageResult struct {
	FolderName  string
	Images      []StoredFile
	Spreadsheet *StoredFile
	Documents   []StoredFile
	Contents    map[string]FileContent
}

// Details strips the byte buffers for inclusion in the API response.
func (r *StorageResult) Details() models.StorageDetails {
	details := models.StorageDetails{
		FolderName: r.FolderName,
		Images:     make([]models.StoredFileRef, 0, len(r.Images)),
		Documents:  make([]models.StoredFileRef, 0, len(r.Documents)),
	}
	for _, img := range r.Images {
		details.Images = append(details.Images, models.StoredFileRef{Filename: img.Filename, StorageURL: img.StorageURL})
	}
	if r.Spreadsheet != nil {
		details.Excel = &models.StoredFileRef{Filename: r.Spreadsheet.Filename, StorageURL: r.Spreadsheet.StorageURL}
	}
	for _, doc := range r.Documents {
		details.Documents = append(details.Documents, models.StoredFileRef{Filename: doc.Filename, StorageURL: doc.StorageURL})
	}
	return details
}

var spreadsheetContentTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// StorageStage persists every valid uploaded item to object storage under
// the project folder and retains the bytes in memory for the analysis
// stages, since the upload stream can only be consumed once.
type StorageStage struct {
	objects ObjectStore
}

func NewStorageStage(objects ObjectStore) *StorageStage {
	return &StorageStage{objects: objects}
}

// Store validates, reads and uploads the batch. Items failing validation
// or reading are skipped and logged; an object-storage write failure is
// fatal to the whole stage because analysis needs stable references.
func (s *StorageStage) Store(ctx context.Context, folderName string, images []UploadFile, spreadsheet *UploadFile, documents []UploadFile) (*StorageResult, error) {
	result := &StorageResult{
		FolderName: folderName,
		Images:     make([]StoredFile, 0, len(images)),
		Documents:  make([]StoredFile, 0, len(documents)),
		Contents:   make(map[string]FileContent),
	}

	for idx, image := range images {
		if !strings.HasPrefix(image.ContentType, "image/") {
			log.Printf("storage stage: skipping %q: not an image (%s)", image.Filename, image.ContentType)
			continue
		}
		data, err := readAll(image)
		if err != nil {
			log.Printf("storage stage: skipping image %q: %v", image.Filename, err)
			continue
		}
		key := fmt.Sprintf("%s/images/%d_%s", folderName, idx, image.Filename)
		url, err := s.objects.Put(ctx, key, data, image.ContentType)
		if err != nil {
			return nil, fmt.Errorf("storage stage: failed to store image %q: %w", image.Filename, err)
		}
		stored := StoredFile{
			ID:          uuid.New().String(),
			Filename:    image.Filename,
			StorageURL:  url,
			ContentType: image.ContentType,
			UploadIndex: idx,
		}
		result.Images = append(result.Images, stored)
		result.Contents[stored.ID] = FileContent{Data: data, ContentType: image.ContentType}
	}

	if spreadsheet != nil {
		if !isSpreadsheet(spreadsheet) {
			log.Printf("storage stage: skipping %q: not a spreadsheet (%s)", spreadsheet.Filename, spreadsheet.ContentType)
		} else {
			data, err := readAll(*spreadsheet)
			if err != nil {
				log.Printf("storage stage: skipping spreadsheet %q: %v", spreadsheet.Filename, err)
			} else {
				key := fmt.Sprintf("%s/excel/%s", folderName, spreadsheet.Filename)
				url, err := s.objects.Put(ctx, key, data, spreadsheet.ContentType)
				if err != nil {
					return nil, fmt.Errorf("storage stage: failed to store spreadsheet %q: %w", spreadsheet.Filename, err)
				}
				stored := StoredFile{
					ID:          uuid.New().String(),
					Filename:    spreadsheet.Filename,
					StorageURL:  url,
					ContentType: spreadsheet.ContentType,
				}
				result.Spreadsheet = &stored
				result.Contents[stored.ID] = FileContent{Data: data, ContentType: spreadsheet.ContentType}
			}
		}
	}

	for idx, document := range documents {
		if !isDocument(document) {
			log.Printf("storage stage: skipping %q: unsupported document type", document.Filename)
			continue
		}
		data, err := readAll(document)
		if err != nil {
			log.Printf("storage stage: skipping document %q: %v", document.Filename, err)
			continue
		}
		key := fmt.Sprintf("%s/documents/%s", folderName, document.Filename)
		url, err := s.objects.Put(ctx, key, data, document.ContentType)
		if err != nil {
			return nil, fmt.Errorf("storage stage: failed to store document %q: %w", document.Filename, err)
		}
		stored := StoredFile{
			ID:          uuid.New().String(),
			Filename:    document.Filename,
			StorageURL:  url,
			ContentType: document.ContentType,
			UploadIndex: idx,
		}
		result.Documents = append(result.Documents, stored)
		result.Contents[stored.ID] = FileContent{Data: data, ContentType: document.ContentType}
	}

	return result, nil
}

func isSpreadsheet(f *UploadFile) bool {
	if spreadsheetContentTypes[f.ContentType] {
		return true
	}
	name := strings.ToLower(f.Filename)
	return strings.HasSuffix(name, ".xls") || strings.HasSuffix(name, ".xlsx")
}

func isDocument(f UploadFile) bool {
	if f.ContentType == "text/plain" || f.ContentType == "application/pdf" {
		return true
	}
	name := strings.ToLower(f.Filename)
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".pdf")
}

func readAll(f UploadFile) ([]byte, error) {
	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
