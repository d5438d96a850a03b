package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"insight-backend/internal/kvstore"
	"insight-backend/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

var ErrProjectNotFound = errors.New("project not found")

// QueryService is the read path. It reconstructs project views from the
// same composite-key schema the consolidation stage writes, and is never
// invoked during upload processing.
type QueryService struct {
	table Table
}

func NewQueryService(table Table) *QueryService {
	return &QueryService{table: table}
}

// ListProjects returns the owner's projects newest-first, bounded by
// limit (default 50, max 100). Entries are derived summaries; has_more is
// approximated as "returned count equals the requested limit".
func (q *QueryService) ListProjects(userID string, limit int) (*models.ProjectListResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := q.table.Query(userPartitionPrefix+userID, projectSortPrefix, limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for user %s: %w", userID, err)
	}

	summaries := make([]models.ProjectSummary, 0, len(items))
	for _, item := range items {
		var project models.Project
		if err := json.Unmarshal(item.Value, &project); err != nil {
			return nil, fmt.Errorf("failed to decode project %s: %w", item.SK, err)
		}
		projectID := strings.TrimPrefix(item.SK, projectSortPrefix)
		title := project.Title
		if title == "" {
			title = projectID
		}
		summaries = append(summaries, models.ProjectSummary{
			ProjectID:         projectID,
			FolderName:        projectID,
			Title:             title,
			CreatedAt:         project.CreatedAt,
			Context:           project.Context,
			HasImages:         len(project.Images) > 0,
			HasExcel:          project.Spreadsheet != nil,
			HasDocuments:      len(project.Documents) > 0,
			ImageCount:        len(project.Images),
			DocumentCount:     len(project.Documents),
			ExcelAnalyzed:     project.Spreadsheet != nil,
			DocumentsAnalyzed: len(project.Documents) > 0,
		})
	}

	return &models.ProjectListResponse{
		UserID:        userID,
		TotalProjects: len(summaries),
		Projects:      summaries,
		HasMore:       len(items) == limit,
		Limit:         limit,
	}, nil
}

// GetProject is a point lookup returning the full stored record plus
// computed metadata.
func (q *QueryService) GetProject(userID, projectID string) (*models.ProjectDetailResponse, error) {
	item, err := q.table.GetItem(userPartitionPrefix+userID, projectSortPrefix+projectID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", projectID, err)
	}

	var project models.Project
	if err := json.Unmarshal(item.Value, &project); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", projectID, err)
	}

	images := project.Images
	if images == nil {
		images = []models.ImageAnalysis{}
	}
	documents := project.Documents
	if documents == nil {
		documents = []models.DocumentAnalysis{}
	}
	title := project.Title
	if title == "" {
		title = projectID
	}

	totalFiles := len(images) + len(documents)
	if project.Spreadsheet != nil {
		totalFiles++
	}

	return &models.ProjectDetailResponse{
		UserID:     userID,
		ProjectID:  projectID,
		FolderName: projectID,
		Title:      title,
		CreatedAt:  project.CreatedAt,
		Context:    project.Context,
		Images:     images,
		Excel:      project.Spreadsheet,
		Documents:  documents,
		Metadata: models.ProjectMetadata{
			ImageCount:    len(images),
			DocumentCount: len(documents),
			HasExcel:      project.Spreadsheet != nil,
			HasDocuments:  len(documents) > 0,
			TotalFiles:    totalFiles,
		},
	}, nil
}

// CountUsers scans the whole table and counts distinct owner partitions.
// O(table size); admin/debug use only.
func (q *QueryService) CountUsers() (*models.UserCountResponse, error) {
	partitions, err := q.table.ScanPartitions()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	userIDs := make([]string, 0, len(partitions))
	for _, pk := range partitions {
		if strings.HasPrefix(pk, userPartitionPrefix) {
			userIDs = append(userIDs, strings.TrimPrefix(pk, userPartitionPrefix))
		}
	}

	return &models.UserCountResponse{
		TotalUniqueUsers: len(userIDs),
		UserIDs:          userIDs,
	}, nil
}
