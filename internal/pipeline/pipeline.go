package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"insight-backend/internal/inference"
	"insight-backend/internal/kvstore"
	"insight-backend/internal/models"
)

// ObjectStore is the storage capability the pipeline consumes: durable
// writes keyed by path, public URL back. No read path is needed.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Table is the single-table key-value capability shared by consolidation
// and the read side. *kvstore.Store satisfies it.
type Table interface {
	PutItem(item kvstore.Item) error
	GetItem(pk, sk string) (kvstore.Item, error)
	Query(pk, skPrefix string, limit int, descending bool) ([]kvstore.Item, error)
	ScanPartitions() ([]string, error)
}

// UploadFile is one uploaded item as handed over by the HTTP layer. Open
// yields the upload stream; the storage stage reads it exactly once.
type UploadFile struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadRequest is one upload batch.
type UploadRequest struct {
	UserID            string
	Title             string
	Context           string
	ImageDescriptions []string
	Images            []UploadFile
	Spreadsheet       *UploadFile
	Documents         []UploadFile
}

// Pipeline runs one upload batch through storage, the three analysis
// stages and consolidation. All collaborators are injected at construction;
// stages hold no global state.
type Pipeline struct {
	storage     *StorageStage
	images      *ImageStage
	spreadsheet *SpreadsheetStage
	documents   *DocumentStage
	consolidate *ConsolidationStage
}

func New(objects ObjectStore, completer inference.Completer, table Table) *Pipeline {
	return &Pipeline{
		storage:     NewStorageStage(objects),
		images:      NewImageStage(completer),
		spreadsheet: NewSpreadsheetStage(completer),
		documents:   NewDocumentStage(completer),
		consolidate: NewConsolidationStage(table),
	}
}

// Process executes the full pipeline. The storage stage must finish first
// (the analysis stages consume its byte buffers and references); the three
// analysis stages then run concurrently; consolidation writes the single
// project record last. A spreadsheet failure aborts the request, per-item
// image/document failures do not.
func (p *Pipeline) Process(ctx context.Context, req UploadRequest) (*models.UploadResponse, error) {
	folderName := GenerateFolderName(req.Title, time.Now().UTC())

	stored, err := p.storage.Store(ctx, folderName, req.Images, req.Spreadsheet, req.Documents)
	if err != nil {
		return nil, err
	}

	var (
		imageResults    []models.ImageAnalysis
		sheetResult     *models.SpreadsheetAnalysis
		documentResults []models.DocumentAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		imageResults = p.images.Analyze(gctx, stored, req.Context, req.ImageDescriptions)
		return nil
	})
	g.Go(func() error {
		var err error
		sheetResult, err = p.spreadsheet.Analyze(gctx, stored, req.Context)
		return err
	})
	g.Go(func() error {
		documentResults = p.documents.Analyze(gctx, stored, req.Context)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = "Untitled"
	}
	dbRef, err := p.consolidate.Store(req.UserID, title, folderName, req.Context,
		imageResults, sheetResult, documentResults)
	if err != nil {
		return nil, err
	}

	return &models.UploadResponse{
		Status:             "success",
		FolderName:         folderName,
		ImagesProcessed:    len(imageResults),
		ExcelProcessed:     sheetResult != nil,
		DocumentsProcessed: len(documentResults),
		StorageDetails:     stored.Details(),
		DBReference:        dbRef,
	}, nil
}

// GenerateFolderName builds the project id: a second-granularity UTC
// timestamp, with the sanitized title appended when one was supplied. The
// id doubles as the object-storage folder prefix.
func GenerateFolderName(title string, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	if title == "" {
		return timestamp
	}
	return timestamp + "_" + SanitizeTitle(title)
}

// SanitizeTitle maps every non-alphanumeric character to an underscore,
// one for one, so the title can be embedded in storage keys.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func buildPrompt(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

func contextLine(projectContext string) string {
	if projectContext == "" {
		return ""
	}
	return fmt.Sprintf("Context: %s", projectContext)
}
