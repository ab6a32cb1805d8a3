package model

import "strings"

// AssetType is the kind of artifact an asset record describes.
type AssetType string

const (
	AssetTypeUserData       AssetType = "user-data"
	AssetTypeGeneratedImage AssetType = "generated-image"
	AssetTypeEditedImage    AssetType = "edited-image"
	AssetTypeTryOnResult    AssetType = "try-on-result"
	AssetTypeGeneratedVideo AssetType = "generated-video"
)

// Valid reports whether t is one of the known asset types.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeUserData, AssetTypeGeneratedImage, AssetTypeEditedImage,
		AssetTypeTryOnResult, AssetTypeGeneratedVideo:
		return true
	}
	return false
}

// AssetCategory is the coarse classification used for filtering in the UI.
type AssetCategory string

const (
	CategoryUserData          AssetCategory = "user-data"
	CategoryUserGeneratedData AssetCategory = "user-generated-data"
)

// Provenance tags written to Asset.Source.
const (
	SourceTextToImage     = "text-to-image"
	SourceEditImageOutput = "edit-image-output"
	SourceTryOnOutput     = "try-on-output"
	SourceTextToVideo     = "text-to-video"
	SourceImageToVideo    = "image-to-video"
)

// Asset is one entry of a user's asset ledger.
// Tags is the only field that may change after creation.
type Asset struct {
	Seq       int64         `gorm:"primaryKey;autoIncrement" json:"-"`
	ID        string        `gorm:"uniqueIndex:uk_user_asset;type:varchar(64)" json:"id"`
	UserID    string        `gorm:"uniqueIndex:uk_user_asset;index:idx_user_created;type:varchar(128)" json:"userId"`
	URL       string        `gorm:"type:text" json:"url"`
	Type      AssetType     `gorm:"type:varchar(32);index" json:"type"`
	Category  AssetCategory `gorm:"type:varchar(32)" json:"category"`
	CreatedAt int64         `gorm:"index:idx_user_created;autoCreateTime:false" json:"createdAt"` // unix millis

	Prompt string `gorm:"type:text" json:"prompt,omitempty"`
	Source string `gorm:"type:varchar(64)" json:"source,omitempty"`
	Model  string `gorm:"type:varchar(128)" json:"model,omitempty"`

	ParentFilename     string `gorm:"type:varchar(255)" json:"parentFilename,omitempty"`
	PersonFilename     string `gorm:"type:varchar(255)" json:"personFilename,omitempty"`
	GarmentFilename    string `gorm:"type:varchar(255)" json:"garmentFilename,omitempty"`
	InputImageFilename string `gorm:"type:varchar(255)" json:"inputImageFilename,omitempty"`

	Tags []string `gorm:"serializer:json;type:text" json:"tags,omitempty"`
}

// TableName sets custom table name
func (Asset) TableName() string {
	return "tb_asset"
}

// Clone returns a deep copy so callers cannot alias a stored record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	return &c
}

// AssetQuery filters a ledger listing. Zero values mean "no filter".
type AssetQuery struct {
	Type  AssetType
	Limit int
}

// AssetUpdate is the partial update accepted after creation.
type AssetUpdate struct {
	Tags []string `json:"tags"`
}

// Apply mutates only the fields an update is allowed to touch.
func (u AssetUpdate) Apply(a *Asset) {
	a.Tags = normalizeTags(u.Tags)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
