package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// UploadResponse is returned by the upload pipeline. StorageDetails carries
// only stored references, never file content.
type UploadResponse struct {
	Status             string         `json:"status"`
	FolderName         string         `json:"folder_name"`
	ImagesProcessed    int            `json:"images_processed"`
	ExcelProcessed     bool           `json:"excel_processed"`
	DocumentsProcessed int            `json:"documents_processed"`
	StorageDetails     StorageDetails `json:"storage_details"`
	DBReference        string         `json:"db_reference"`
}

type StorageDetails struct {
	FolderName string          `json:"folder_name"`
	Images     []StoredFileRef `json:"images"`
	Excel      *StoredFileRef  `json:"excel"`
	Documents  []StoredFileRef `json:"documents"`
}

type StoredFileRef struct {
	Filename   string `json:"filename"`
	StorageURL string `json:"s3_url"`
}

type ProjectListResponse struct {
	UserID        string           `json:"user_id"`
	TotalProjects int              `json:"total_projects"`
	Projects      []ProjectSummary `json:"projects"`
	HasMore       bool             `json:"has_more"`
	Limit         int              `json:"limit"`
}

// ProjectSummary is the derived listing entry: presence flags and counts,
// computed from the stored record rather than re-validated against it.
type ProjectSummary struct {
	ProjectID         string `json:"project_id"`
	FolderName        string `json:"folder_name"`
	Title             string `json:"title"`
	CreatedAt         string `json:"created_at"`
	Context           string `json:"context"`
	HasImages         bool   `json:"has_images"`
	HasExcel          bool   `json:"has_excel"`
	HasDocuments      bool   `json:"has_documents"`
	ImageCount        int    `json:"image_count"`
	DocumentCount     int    `json:"document_count"`
	ExcelAnalyzed     bool   `json:"excel_analyzed"`
	DocumentsAnalyzed bool   `json:"documents_analyzed"`
}

type ProjectDetailResponse struct {
	UserID      string               `json:"user_id"`
	ProjectID   string               `json:"project_id"`
	FolderName  string               `json:"folder_name"`
	Title       string               `json:"title"`
	CreatedAt   string               `json:"created_at"`
	Context     string               `json:"context"`
	Images      []ImageAnalysis      `json:"images"`
	Excel       *SpreadsheetAnalysis `json:"excel"`
	Documents   []DocumentAnalysis   `json:"documents"`
	Metadata    ProjectMetadata      `json:"metadata"`
}

type ProjectMetadata struct {
	ImageCount    int  `json:"image_count"`
	DocumentCount int  `json:"document_count"`
	HasExcel      bool `json:"has_excel"`
	HasDocuments  bool `json:"has_documents"`
	TotalFiles    int  `json:"total_files"`
}

type UserCountResponse struct {
	TotalUniqueUsers int      `json:"total_unique_users"`
	UserIDs          []string `json:"user_ids"`
}
