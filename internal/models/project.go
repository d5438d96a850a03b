package models

// Project is the consolidated record for one upload batch. It is written
// exactly once at the end of upload processing and never updated afterward.
type Project struct {
	OwnerID     string               `json:"owner_id"`
	ProjectID   string               `json:"project_id"`
	Title       string               `json:"title"`
	CreatedAt   string               `json:"created_at"`
	Context     string               `json:"context"`
	Images      []ImageAnalysis      `json:"images"`
	Spreadsheet *SpreadsheetAnalysis `json:"excel,omitempty"`
	Documents   []DocumentAnalysis   `json:"documents"`
}

// ImageAnalysis holds one image's stored reference and its analysis result.
// Failed marks an image whose inference call did not succeed; the entry is
// kept so the response still covers every uploaded image.
type ImageAnalysis struct {
	Filename     string `json:"filename"`
	StorageURL   string `json:"storage_url"`
	Context      string `json:"context,omitempty"`
	Description  string `json:"image_description,omitempty"`
	AnalysisText string `json:"analysis_result"`
	UploadIndex  int    `json:"upload_index"`
	Failed       bool   `json:"failed,omitempty"`
	Error        string `json:"error,omitempty"`
}

type SpreadsheetAnalysis struct {
	Filename     string       `json:"filename"`
	StorageURL   string       `json:"storage_url"`
	Context      string       `json:"context,omitempty"`
	AnalysisText string       `json:"analysis_result"`
	RowCount     int          `json:"row_count"`
	ColumnCount  int          `json:"column_count"`
	Columns      []string     `json:"columns"`
	Insights     []RowInsight `json:"insights"`
}

// RowInsight is one entry of the bounded per-row sample attached to a
// spreadsheet analysis. RowIndex is the data row's position in the file.
type RowInsight struct {
	RowIndex int    `json:"row_index"`
	Summary  string `json:"summary"`
}

type DocumentAnalysis struct {
	Filename     string `json:"filename"`
	StorageURL   string `json:"storage_url"`
	Context      string `json:"context,omitempty"`
	DocumentType string `json:"document_type"`
	AnalysisText string `json:"analysis_result"`
	Failed       bool   `json:"failed,omitempty"`
	Error        string `json:"error,omitempty"`
}

// UserProfile is the auth subsystem's record, stored under the same owner
// partition as projects with the PROFILE sort key.
type UserProfile struct {
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
	LastLogin    string `json:"last_login"`
}

// PasswordReset is a pending one-time reset code, valid for ten minutes
// and consumed on first successful use.
type PasswordReset struct {
	OTP       string `json:"otp"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}
