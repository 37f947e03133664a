package model

import "time"

// Workspace is the owning entity for all exportable content.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// BrandKit is the workspace's brand snapshot bundled into export metadata.
type BrandKit struct {
	ID             string `json:"id"`
	WorkspaceID    string `json:"workspaceId"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	AccentColor    string `json:"accentColor"`
	HeadingFont    string `json:"headingFont"`
	BodyFont       string `json:"bodyFont"`
	BrandVoice     string `json:"brandVoice,omitempty"`
}

// Asset is an original uploaded file backing one or more captions.
type Asset struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	FileName    string    `json:"fileName"`
	FilePath    string    `json:"filePath"`
	MimeType    string    `json:"mimeType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AdCopy is the optional paid-ads payload attached to a caption variation.
type AdCopy struct {
	Headline     string `json:"headline"`
	PrimaryText  string `json:"primaryText"`
	Description  string `json:"description,omitempty"`
	CallToAction string `json:"callToAction,omitempty"`
}

// CaptionVariation is one alternative phrasing of a caption.
type CaptionVariation struct {
	Text   string  `json:"text"`
	AdCopy *AdCopy `json:"adCopy,omitempty"`
}

// Caption is a piece of written creative tied to a backing asset.
type Caption struct {
	ID          string             `json:"id"`
	WorkspaceID string             `json:"workspaceId"`
	AssetID     string             `json:"assetId"`
	Text        string             `json:"text"`
	Variations  []CaptionVariation `json:"variations,omitempty"`
	Status      ApprovalStatus     `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	ApprovedAt  *time.Time         `json:"approvedAt,omitempty"`
}

// GeneratedAsset is a rendered creative image produced for the workspace.
type GeneratedAsset struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	ImagePath   string         `json:"imagePath"`
	Format      string         `json:"format"` // e.g. "instagram-post", "story"
	Layout      string         `json:"layout"` // e.g. "square", "portrait"
	Status      ApprovalStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}
