package dto

// ImportFileForm is the non-file part of a single-file upload
type ImportFileForm struct {
	Hint      string `form:"hint" binding:"omitempty,max=500"`
	SessionID string `form:"session_id" binding:"omitempty,max=64"`
}

// PreviewForm is the non-file part of a preview upload
type PreviewForm struct {
	Hint string `form:"hint" binding:"omitempty,max=500"`
}

// HistoryQuery lists past imports. From and To are YYYY-MM-DD days, both
// inclusive.
type HistoryQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=processing completed partial failed"`
	FileName  string `form:"file_name" binding:"omitempty,max=255"`
	SessionID string `form:"session_id" binding:"omitempty,max=64"`
	From      string `form:"from" binding:"omitempty,isodate"`
	To        string `form:"to" binding:"omitempty,isodate"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
