package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"insight-backend/internal/inference"
	"insight-backend/internal/models"
)

// maxConcurrentCalls bounds in-flight inference calls within the image and
// document stages, to respect the backend's throughput.
const maxConcurrentCalls = 4

// documentPrefixLimit bounds how much document text goes into the prompt.
const documentPrefixLimit = 2000

const documentInstruction = `Please analyze this text document and provide insights including:
1. Document summary and main topics
2. Key information and themes
3. Important data or findings
4. Recommendations based on the content`

// DocumentStage analyzes stored text documents one inference call each.
// PDF content extraction is a deliberate scope limit: PDFs are stored and
// acknowledged, not analyzed.
type DocumentStage struct {
	completer   inference.Completer
	concurrency int
}

func NewDocumentStage(completer inference.Completer) *DocumentStage {
	return &DocumentStage{completer: completer, concurrency: maxConcurrentCalls}
}

// Analyze produces one record per stored document, preserving input order.
// Per-document failures (bad encoding, inference errors) are isolated into
// failed entries and never abort the batch.
func (s *DocumentStage) Analyze(ctx context.Context, stored *StorageResult, projectContext string) []models.DocumentAnalysis {
	results := make([]models.DocumentAnalysis, len(stored.Documents))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)
	for i, doc := range stored.Documents {
		content, ok := stored.Contents[doc.ID]
		if !ok {
			log.Printf("document stage: no stored content for %q", doc.Filename)
			results[i] = failedDocument(doc, projectContext, "no stored content")
			continue
		}

		if strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf") {
			results[i] = models.DocumentAnalysis{
				Filename:     doc.Filename,
				StorageURL:   doc.StorageURL,
				Context:      projectContext,
				DocumentType: "PDF",
				AnalysisText: fmt.Sprintf("PDF document '%s' uploaded successfully. PDF content analysis requires additional processing libraries.", doc.Filename),
			}
			continue
		}

		if !utf8.Valid(content.Data) {
			log.Printf("document stage: %q is not valid UTF-8 text", doc.Filename)
			results[i] = failedDocument(doc, projectContext, "document is not valid UTF-8 text")
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, doc StoredFile, text string) {
			defer wg.Done()
			defer func() { <-sem }()

			prompt := buildPrompt(
				contextLine(projectContext),
				"Document Type: Text File",
				fmt.Sprintf("Document Content: %s", truncateRunes(text, documentPrefixLimit)),
				"",
				documentInstruction,
			)
			analysis, err := s.completer.Complete(ctx, inference.CompletionRequest{Prompt: prompt})
			if err != nil {
				log.Printf("document stage: analysis failed for %q: %v", doc.Filename, err)
				results[i] = failedDocument(doc, projectContext, err.Error())
				return
			}

			results[i] = models.DocumentAnalysis{
				Filename:     doc.Filename,
				StorageURL:   doc.StorageURL,
				Context:      projectContext,
				DocumentType: "Text",
				AnalysisText: analysis,
			}
		}(i, doc, string(content.Data))
	}
	wg.Wait()

	return results
}

func failedDocument(doc StoredFile, projectContext, errMsg string) models.DocumentAnalysis {
	return models.DocumentAnalysis{
		Filename:     doc.Filename,
		StorageURL:   doc.StorageURL,
		Context:      projectContext,
		DocumentType: documentType(doc.Filename),
		AnalysisText: "Error: failed to analyze document",
		Failed:       true,
		Error:        errMsg,
	}
}

func documentType(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "PDF"
	}
	return "Text"
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
