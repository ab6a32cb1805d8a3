package respond

import (
	"fashion-studio/model"
)

// AssetResponse public view of a ledger record
type AssetResponse struct {
	ID                 string   `json:"id" example:"3f2b9c1e-8a4d-4e0b-9d6a-1c2f3e4d5a6b"`
	URL                string   `json:"url" example:"http://localhost:8000/media/local-user/3f2b9c1e.png"`
	Type               string   `json:"type" example:"generated-image"`
	Category           string   `json:"category" example:"user-generated-data"`
	CreatedAt          int64    `json:"createdAt" example:"1735689600000"`
	Prompt             string   `json:"prompt,omitempty" example:"red shoes"`
	Source             string   `json:"source,omitempty" example:"text-to-image"`
	Model              string   `json:"model,omitempty" example:"gemini-2.5-flash-image"`
	ParentFilename     string   `json:"parentFilename,omitempty"`
	PersonFilename     string   `json:"personFilename,omitempty"`
	GarmentFilename    string   `json:"garmentFilename,omitempty"`
	InputImageFilename string   `json:"inputImageFilename,omitempty"`
	Tags               []string `json:"tags"`
}

// AssetListResponse asset list response structure
type AssetListResponse struct {
	Assets []AssetResponse `json:"assets"`
	Total  int             `json:"total" example:"12"`
}

// AssetCreatedResponse returned after a record (and optionally a file) was stored
type AssetCreatedResponse struct {
	ID  string `json:"id" example:"3f2b9c1e-8a4d-4e0b-9d6a-1c2f3e4d5a6b"`
	URL string `json:"url,omitempty" example:"http://localhost:8000/media/local-user/3f2b9c1e.png"`
}

// TextResponse generate-text response
type TextResponse struct {
	Text string `json:"text" example:"A tailored wool coat in camel..."`
}

// HealthResponse root endpoint response
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Project string `json:"project" example:"fashion-studio-local"`
}

// DeadLetterListResponse failed persistence attempts
type DeadLetterListResponse struct {
	DeadLetters []*model.PersistFailure `json:"deadLetters"`
	Total       int                     `json:"total" example:"0"`
}

// ToAssetResponse convert model to response
func ToAssetResponse(a *model.Asset) AssetResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return AssetResponse{
		ID:                 a.ID,
		URL:                a.URL,
		Type:               string(a.Type),
		Category:           string(a.Category),
		CreatedAt:          a.CreatedAt,
		Prompt:             a.Prompt,
		Source:             a.Source,
		Model:              a.Model,
		ParentFilename:     a.ParentFilename,
		PersonFilename:     a.PersonFilename,
		GarmentFilename:    a.GarmentFilename,
		InputImageFilename: a.InputImageFilename,
		Tags:               tags,
	}
}

// ToAssetListResponse convert model list to response
func ToAssetListResponse(assets []*model.Asset) AssetListResponse {
	out := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, ToAssetResponse(a))
	}
	return AssetListResponse{Assets: out, Total: len(out)}
}

// ToDeadLetterListResponse convert dead letters to response
func ToDeadLetterListResponse(entries []*model.PersistFailure) DeadLetterListResponse {
	if entries == nil {
		entries = []*model.PersistFailure{}
	}
	return DeadLetterListResponse{DeadLetters: entries, Total: len(entries)}
}
