package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"insight-backend/internal/inference"
	"insight-backend/internal/models"
)

// imageMaxTokens caps each image summary at the backend. Roughly 50 words;
// truncating generation is how the length bound is enforced.
const imageMaxTokens = 150

const imageInstruction = `Analyze this image and provide a concise summary in exactly 50 words or less. Focus only on:
1. Main subject/content
2. Key visual elements
3. Most important information
4. Primary purpose/context

Be direct and avoid unnecessary details or descriptions of colors, positioning, or layout unless critically important.`

// ImageStage analyzes each stored image with one multi-modal inference
// call. Calls are issued concurrently up to maxConcurrentCalls; output
// order follows upload order regardless of completion order.
type ImageStage struct {
	completer   inference.Completer
	concurrency int
}

func NewImageStage(completer inference.Completer) *ImageStage {
	return &ImageStage{completer: completer, concurrency: maxConcurrentCalls}
}

// Analyze produces one record per stored image. A failed inference call
// yields a record marked failed with the error annotation; it never aborts
// the batch.
func (s *ImageStage) Analyze(ctx context.Context, stored *StorageResult, projectContext string, descriptions []string) []models.ImageAnalysis {
	results := make([]models.ImageAnalysis, len(stored.Images))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)
	for i, image := range stored.Images {
		content, ok := stored.Contents[image.ID]
		if !ok {
			// Storage stage always records content for what it stores;
			// missing content means the entry cannot be analyzed.
			log.Printf("image stage: no stored content for %q", image.Filename)
			results[i] = failedImage(image, projectContext, "", "no stored content")
			continue
		}

		description := ""
		if image.UploadIndex < len(descriptions) {
			description = descriptions[image.UploadIndex]
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, image StoredFile, content FileContent, description string) {
			defer wg.Done()
			defer func() { <-sem }()

			prompt := buildPrompt(
				contextLine(projectContext),
				descriptionLine(description),
				imageInstruction,
			)
			text, err := s.completer.Complete(ctx, inference.CompletionRequest{
				Prompt: prompt,
				Attachment: &inference.Attachment{
					MediaType: content.ContentType,
					Data:      content.Data,
				},
				MaxTokens: imageMaxTokens,
			})
			if err != nil {
				log.Printf("image stage: analysis failed for %q: %v", image.Filename, err)
				results[i] = failedImage(image, projectContext, description, err.Error())
				return
			}

			results[i] = models.ImageAnalysis{
				Filename:     image.Filename,
				StorageURL:   image.StorageURL,
				Context:      projectContext,
				Description:  description,
				AnalysisText: text,
				UploadIndex:  image.UploadIndex,
			}
		}(i, image, content, description)
	}
	wg.Wait()

	return results
}

func failedImage(image StoredFile, projectContext, description, errMsg string) models.ImageAnalysis {
	return models.ImageAnalysis{
		Filename:     image.Filename,
		StorageURL:   image.StorageURL,
		Context:      projectContext,
		Description:  description,
		AnalysisText: "Error: failed to analyze image",
		UploadIndex:  image.UploadIndex,
		Failed:       true,
		Error:        errMsg,
	}
}

func descriptionLine(description string) string {
	if description == "" {
		return ""
	}
	return fmt.Sprintf("Image Description: %s", description)
}
