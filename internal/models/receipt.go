package models

// Receipt is the metadata of an uploaded receipt file
type Receipt struct {
	ID         int64  `json:"id,omitempty"`
	ExpenseID  int64  `json:"expenseId"`
	FileName   string `json:"fileName"`
	FileURL    string `json:"fileUrl,omitempty"`
	FileType   string `json:"fileType,omitempty"`
	OCRText    string `json:"ocrText,omitempty"`
	UploadDate string `json:"uploadDate,omitempty"`
}
