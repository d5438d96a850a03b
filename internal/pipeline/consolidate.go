package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"insight-backend/internal/kvstore"
	"insight-backend/internal/models"
)

const (
	userPartitionPrefix = "USER#"
	projectSortPrefix   = "PROJECT#"
)

// ConsolidationStage merges the stage outputs into one project record and
// is the sole writer of project records. The write is unconditional: a
// retried request for the same owner and project id overwrites entirely.
type ConsolidationStage struct {
	table Table
}

func NewConsolidationStage(table Table) *ConsolidationStage {
	return &ConsolidationStage{table: table}
}

// Store writes the record under (USER#{owner}, PROJECT#{project}) and
// returns the composite key reference echoed back to the caller.
func (s *ConsolidationStage) Store(ownerID, title, projectID, projectContext string,
	images []models.ImageAnalysis, spreadsheet *models.SpreadsheetAnalysis,
	documents []models.DocumentAnalysis) (string, error) {

	if images == nil {
		images = []models.ImageAnalysis{}
	}
	if documents == nil {
		documents = []models.DocumentAnalysis{}
	}

	project := &models.Project{
		OwnerID:     ownerID,
		ProjectID:   projectID,
		Title:       title,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Context:     projectContext,
		Images:      images,
		Spreadsheet: spreadsheet,
		Documents:   documents,
	}

	value, err := json.Marshal(project)
	if err != nil {
		return "", fmt.Errorf("consolidation stage: failed to encode project: %w", err)
	}

	pk := userPartitionPrefix + ownerID
	sk := projectSortPrefix + projectID
	if err := s.table.PutItem(kvstore.Item{PK: pk, SK: sk, Value: value}); err != nil {
		return "", fmt.Errorf("consolidation stage: failed to store project: %w", err)
	}

	return fmt.Sprintf("USER#%s#PROJECT#%s", ownerID, projectID), nil
}
