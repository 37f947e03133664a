package model

// ExportOptions is per-invocation configuration, never persisted.
type ExportOptions struct {
	IncludeAssets          bool         `json:"includeAssets"`
	IncludeCaptions        bool         `json:"includeCaptions"`
	IncludeGeneratedImages bool         `json:"includeGeneratedImages"`
	Format                 ExportFormat `json:"format"`
}

// DefaultExportOptions bundles everything into an archive.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeAssets:          true,
		IncludeCaptions:        true,
		IncludeGeneratedImages: true,
		Format:                 ExportFormatArchive,
	}
}

// ExportResult is what the archive builder hands back on success. Warnings
// lists source files that were skipped, so a caller can distinguish a fully
// complete archive from one with omissions.
type ExportResult struct {
	ArchivePath string   `json:"archivePath"`
	FileName    string   `json:"fileName"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ExportStartRequest is the optional request body for start-export. Unset
// include flags default to true.
type ExportStartRequest struct {
	IncludeAssets          *bool  `json:"includeAssets"`
	IncludeCaptions        *bool  `json:"includeCaptions"`
	IncludeGeneratedImages *bool  `json:"includeGeneratedImages"`
	Format                 string `json:"format" validate:"omitempty,oneof=archive structured-data"`
}

// Options resolves the request into concrete export options.
func (r *ExportStartRequest) Options() ExportOptions {
	opts := DefaultExportOptions()
	if r.IncludeAssets != nil {
		opts.IncludeAssets = *r.IncludeAssets
	}
	if r.IncludeCaptions != nil {
		opts.IncludeCaptions = *r.IncludeCaptions
	}
	if r.IncludeGeneratedImages != nil {
		opts.IncludeGeneratedImages = *r.IncludeGeneratedImages
	}
	if r.Format != "" {
		opts.Format = ExportFormat(r.Format)
	}
	return opts
}
