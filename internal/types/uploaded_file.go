package types

import (
	"gorm.io/gorm"
)

// UploadedFile catalogs a reference document accepted by the upload
// endpoint. StoredName is the sanitized on-disk name handed back to the
// frontend; chat requests refer to documents by it.
type UploadedFile struct {
	gorm.Model
	StoredName   string `gorm:"uniqueIndex;not null;column:stored_name" json:"filename"`
	OriginalName string `gorm:"not null;column:original_name" json:"original_name"`
	Size         int64  `gorm:"column:size" json:"size"`
	ContentType  string `gorm:"column:content_type" json:"content_type"`
}

func (UploadedFile) TableName() string {
	return "uploaded_file"
}
