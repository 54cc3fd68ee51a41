package domain

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type MediaAsset struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MoldRecordID uint      `gorm:"column:mold_record_id;not null;index" json:"mold_record_id"`
	URL          string    `gorm:"column:url;type:text;not null" json:"url"`
	MediaType    MediaType `gorm:"column:media_type;size:20;not null" json:"media_type"`
	OriginalName string    `gorm:"column:original_name" json:"original_name"`
	// UploadName is the filename as the client sent it; OriginalName is what it is stored under.
	UploadName   string    `gorm:"column:upload_name" json:"upload_name"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (MediaAsset) TableName() string { return "media_asset" }
