package models

// Media is an uploaded invoice. The ledger only stores the reference; the
// file itself lives in external storage under StorageKey.
type Media struct {
	Base
	StorageKey   string `gorm:"not null" json:"storage_key"`
	Filename     string `gorm:"not null" json:"filename"`
	MimeType     string `json:"mime_type"`
	UploadedByID string `gorm:"type:uuid;not null" json:"uploaded_by_id"`
}

func (Media) TableName() string { return "media" }
