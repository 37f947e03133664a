package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/store"
)

var (
	// ErrNoExportableContent means the workspace has no approved captions and
	// no approved generated assets.
	ErrNoExportableContent = errors.New("workspace has no approved content to export")
	// ErrUnsupportedFormat means a format other than "archive" was requested.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Builder streams a workspace's approved content into a zip archive on disk.
type Builder struct {
	content   store.ContentStore
	outputDir string
}

func NewBuilder(content store.ContentStore, outputDir string) *Builder {
	return &Builder{content: content, outputDir: outputDir}
}

type metadata struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Workspace  workspaceRef    `json:"workspace"`
	Counts     contentCounts   `json:"counts"`
	BrandKit   *model.BrandKit `json:"brandKit"`
}

type workspaceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type contentCounts struct {
	Captions        int `json:"captions"`
	GeneratedImages int `json:"generatedImages"`
	Total           int `json:"total"`
}

type assetSummary struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

type exportedCaption struct {
	ID         string                   `json:"id"`
	Text       string                   `json:"text"`
	Variations []model.CaptionVariation `json:"variations,omitempty"`
	Approved   bool                     `json:"approved"`
	Asset      *assetSummary            `json:"asset"`
	CreatedAt  time.Time                `json:"createdAt"`
	ApprovedAt *time.Time               `json:"approvedAt,omitempty"`
}

type adCopyEntry struct {
	CaptionID  string         `json:"captionId"`
	AssetID    string         `json:"assetId"`
	AssetName  string         `json:"assetName"`
	Variations []model.AdCopy `json:"variations"`
}

// CreateExport builds the archive for a workspace and returns its location.
// Missing source files for individual assets or images are skipped and
// reported as warnings; any write error on the archive stream aborts the
// whole export and removes the partial file.
func (b *Builder) CreateExport(ctx context.Context, workspaceID string, opts model.ExportOptions) (*model.ExportResult, error) {
	if opts.Format != "" && opts.Format != model.ExportFormatArchive {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}

	ws, err := b.content.GetWorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	captions, err := b.content.GetApprovedCaptionsByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	generated, err := b.content.GetApprovedGeneratedAssets(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if len(captions) == 0 && len(generated) == 0 {
		return nil, ErrNoExportableContent
	}

	brandKit, err := b.content.GetBrandKitByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	// Resolve backing assets up front; a dangling reference is tolerated.
	var warnings []string
	assetsByID := make(map[string]*model.Asset)
	for _, c := range captions {
		if c.AssetID == "" {
			continue
		}
		if _, seen := assetsByID[c.AssetID]; seen {
			continue
		}
		a, err := b.content.GetAssetByID(ctx, c.AssetID)
		if err != nil {
			if errors.Is(err, store.ErrAssetNotFound) {
				warnings = append(warnings, fmt.Sprintf("asset record %s not found, skipped", c.AssetID))
				assetsByID[c.AssetID] = nil
				continue
			}
			return nil, err
		}
		assetsByID[c.AssetID] = a
	}

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	fileName := exportFileName(ws.Name)
	archivePath := filepath.Join(b.outputDir, fileName)

	f, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	zw := zip.NewWriter(f)

	w := &archiveWriter{
		zw:       zw,
		ws:       ws,
		brandKit: brandKit,
		captions: captions,
		images:   generated,
		assets:   assetsByID,
		opts:     opts,
		warnings: warnings,
	}
	if err := w.writeAll(); err != nil {
		zw.Close()
		f.Close()
		os.Remove(archivePath)
		return nil, err
	}

	// A truncated archive must never be reported as success: close the zip
	// stream, flush the file to disk, then close it, failing on any step.
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(archivePath)
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(archivePath)
		return nil, fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(archivePath)
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	return &model.ExportResult{
		ArchivePath: archivePath,
		FileName:    fileName,
		Warnings:    w.warnings,
	}, nil
}

// archiveWriter carries the state of one export through the entry-writing
// steps so each step stays small.
type archiveWriter struct {
	zw       *zip.Writer
	ws       *model.Workspace
	brandKit *model.BrandKit
	captions []model.Caption
	images   []model.GeneratedAsset
	assets   map[string]*model.Asset
	opts     model.ExportOptions
	warnings []string
}

func (w *archiveWriter) writeAll() error {
	if err := w.writeMetadata(); err != nil {
		return err
	}
	if w.opts.IncludeCaptions && len(w.captions) > 0 {
		if err := w.writeCaptions(); err != nil {
			return err
		}
		if err := w.writeAdCopy(); err != nil {
			return err
		}
	}
	if w.opts.IncludeAssets {
		if err := w.writeAssets(); err != nil {
			return err
		}
	}
	if w.opts.IncludeGeneratedImages {
		if err := w.writeGeneratedImages(); err != nil {
			return err
		}
	}
	return w.writeReadme()
}

func (w *archiveWriter) writeMetadata() error {
	return w.writeJSON("metadata.json", metadata{
		ExportedAt: time.Now().UTC(),
		Workspace:  workspaceRef{ID: w.ws.ID, Name: w.ws.Name},
		Counts: contentCounts{
			Captions:        len(w.captions),
			GeneratedImages: len(w.images),
			Total:           len(w.captions) + len(w.images),
		},
		BrandKit: w.brandKit,
	})
}

func (w *archiveWriter) writeCaptions() error {
	var txt strings.Builder
	txt.WriteString(fmt.Sprintf("Approved captions for %s\n", w.ws.Name))
	txt.WriteString(strings.Repeat("=", 40) + "\n\n")
	for _, c := range w.captions {
		txt.WriteString(fmt.Sprintf("Asset: %s\n", w.assetName(c.AssetID)))
		txt.WriteString(fmt.Sprintf("Caption: %s\n", c.Text))
		txt.WriteString(fmt.Sprintf("Generated: %s\n", c.CreatedAt.Format(time.RFC3339)))
		if c.ApprovedAt != nil {
			txt.WriteString(fmt.Sprintf("Approved: %s\n", c.ApprovedAt.Format(time.RFC3339)))
		}
		txt.WriteString("\n---\n\n")
	}
	if err := w.writeRaw("captions.txt", []byte(txt.String())); err != nil {
		return err
	}

	records := make([]exportedCaption, 0, len(w.captions))
	for _, c := range w.captions {
		rec := exportedCaption{
			ID:         c.ID,
			Text:       c.Text,
			Variations: c.Variations,
			Approved:   c.Status == model.ApprovalStatusApproved,
			CreatedAt:  c.CreatedAt,
			ApprovedAt: c.ApprovedAt,
		}
		if a := w.assets[c.AssetID]; a != nil {
			rec.Asset = &assetSummary{ID: a.ID, FileName: a.FileName, MimeType: a.MimeType}
		}
		records = append(records, rec)
	}
	return w.writeJSON("captions.json", records)
}

// writeAdCopy emits the aggregate ad-copy file plus one file per asset, but
// only when at least one approved variation actually carries ad copy.
func (w *archiveWriter) writeAdCopy() error {
	var entries []adCopyEntry
	for _, c := range w.captions {
		var variations []model.AdCopy
		for _, v := range c.Variations {
			if v.AdCopy != nil {
				variations = append(variations, *v.AdCopy)
			}
		}
		if len(variations) == 0 {
			continue
		}
		entries = append(entries, adCopyEntry{
			CaptionID:  c.ID,
			AssetID:    c.AssetID,
			AssetName:  w.assetName(c.AssetID),
			Variations: variations,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	if err := w.writeJSON("ad-copy.json", entries); err != nil {
		return err
	}

	byAsset := make(map[string][]adCopyEntry)
	for _, e := range entries {
		name := sanitizeName(e.AssetName)
		if name == "" {
			name = "asset"
		}
		byAsset[name] = append(byAsset[name], e)
	}
	names := make([]string, 0, len(byAsset))
	for name := range byAsset {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.writeJSON(fmt.Sprintf("ad-copy/%s.json", name), byAsset[name]); err != nil {
			return err
		}
	}
	return nil
}

func (w *archiveWriter) writeAssets() error {
	seen := make(map[string]bool)
	for _, c := range w.captions {
		a := w.assets[c.AssetID]
		if a == nil || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		entry := fmt.Sprintf("assets/originals/%s", a.FileName)
		if err := w.copyFile(entry, a.FilePath); err != nil {
			return err
		}
	}
	return nil
}

func (w *archiveWriter) writeGeneratedImages() error {
	for _, img := range w.images {
		entry := fmt.Sprintf("generated-images/%s/%s/%s", img.Format, img.Layout, filepath.Base(img.ImagePath))
		if err := w.copyFile(entry, img.ImagePath); err != nil {
			return err
		}
	}
	return nil
}

func (w *archiveWriter) writeReadme() error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s — Content Export\n\n", w.ws.Name))
	b.WriteString(fmt.Sprintf("Exported %s.\n\n", time.Now().UTC().Format(time.RFC1123)))
	b.WriteString("## Contents\n\n")
	b.WriteString("- `metadata.json` — workspace details, content counts and brand kit snapshot\n")
	if w.opts.IncludeCaptions && len(w.captions) > 0 {
		b.WriteString(fmt.Sprintf("- `captions.txt` / `captions.json` — %d approved captions in human- and machine-readable form\n", len(w.captions)))
		b.WriteString("- `ad-copy.json`, `ad-copy/` — paid-ads copy grouped per asset (present only when ad copy exists)\n")
	}
	if w.opts.IncludeAssets {
		b.WriteString("- `assets/originals/` — original uploaded files referenced by the captions\n")
	}
	if w.opts.IncludeGeneratedImages && len(w.images) > 0 {
		b.WriteString(fmt.Sprintf("- `generated-images/` — %d rendered creatives, organized by format and layout\n", len(w.images)))
	}
	b.WriteString("\nFiles listed in the job's warnings were missing at export time and are not included.\n")
	return w.writeRaw("README.md", []byte(b.String()))
}

// copyFile streams a source file into the archive. A missing source is
// recorded as a warning and skipped; any other error aborts the export.
func (w *archiveWriter) copyFile(entryName, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			w.warnings = append(w.warnings, fmt.Sprintf("source file %s missing, skipped", srcPath))
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := w.zw.Create(entryName)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", entryName, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", entryName, err)
	}
	return nil
}

func (w *archiveWriter) writeJSON(entryName string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", entryName, err)
	}
	return w.writeRaw(entryName, data)
}

func (w *archiveWriter) writeRaw(entryName string, data []byte) error {
	dst, err := w.zw.Create(entryName)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", entryName, err)
	}
	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", entryName, err)
	}
	return nil
}

func (w *archiveWriter) assetName(assetID string) string {
	if a := w.assets[assetID]; a != nil {
		return a.FileName
	}
	return "unknown"
}

// exportFileName derives a collision-resistant archive name from the
// workspace display name: non-alphanumerics stripped, then a millisecond
// timestamp and random suffix so concurrent exports never clash.
func exportFileName(workspaceName string) string {
	base := sanitizeName(workspaceName)
	if base == "" {
		base = "workspace"
	}
	return fmt.Sprintf("%s-export-%d-%s.zip", base, time.Now().UnixMilli(), uuid.New().String()[:8])
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
