package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/pdf"
	"github.com/diewo77/gestion-chantier/internal/storage"
	"github.com/diewo77/gestion-chantier/validation"
)

// MaxUploadBytes bounds a single uploaded file.
const MaxUploadBytes = 25 << 20

// DocumentService stores job-site files and generates quotes and invoices.
type DocumentService struct {
	Sites    *JobSiteService
	Settings *SettingsService
	Store    storage.ObjectStore
	Options  pdf.Options
	Now      func() time.Time
}

func NewDocumentService(sites *JobSiteService, settings *SettingsService, store storage.ObjectStore, opts pdf.Options) *DocumentService {
	return &DocumentService{Sites: sites, Settings: settings, Store: store, Options: opts}
}

// Upload stores r under the site's folder, then records it on the site.
// Once started it is not cancelled by the caller.
func (s *DocumentService) Upload(ctx context.Context, siteID, filename, contentType string, size int64, r io.Reader) (*models.FileRef, error) {
	if _, err := s.Sites.Get(ctx, siteID); err != nil {
		return nil, err
	}
	if size > MaxUploadBytes {
		return nil, invalid(validation.Violations{"file": "too_large"})
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx = context.WithoutCancel(ctx)
	now := clock(s.Now).now()
	key := storage.ObjectPath(siteID, filename, now)
	if err := s.Store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	ref := models.FileRef{
		Name:       storage.SafeName(filename),
		URL:        storage.URL(key),
		MimeType:   contentType,
		Size:       size,
		UploadedAt: now.UTC(),
		Path:       key,
	}
	if err := s.Sites.AttachDocument(ctx, siteID, ref); err != nil {
		slog.Error("file stored but not recorded", "site", siteID, "path", key, "error", err)
		return nil, fmt.Errorf("record file: %w", err)
	}
	return &ref, nil
}

// Delete removes the stored object, then its reference. An object already
// missing from storage is only logged.
func (s *DocumentService) Delete(ctx context.Context, siteID, path string) error {
	site, err := s.Sites.Get(ctx, siteID)
	if err != nil {
		return err
	}
	found := false
	for _, d := range site.Documents {
		if d.Path == path {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.Store.Delete(ctx, path); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			return fmt.Errorf("delete file: %w", err)
		}
		slog.Warn("stored file already missing", "site", siteID, "path", path)
	}
	_, err = s.Sites.DetachDocument(ctx, siteID, path)
	return err
}

// Generate composes a quote or invoice from the site materials, renders it and
// stores the PDF among the site files. A failure after the upload leaves the
// object in storage.
func (s *DocumentService) Generate(ctx context.Context, siteID string, typ pdf.DocType) (*models.FileRef, error) {
	if !typ.Valid() {
		return nil, invalid(validation.Violations{"type": "invalid_choice"})
	}
	site, err := s.Sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	company, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	now := clock(s.Now).now()
	doc := pdf.Compose(pdf.Input{
		Type:    typ,
		Site:    *site,
		Company: company,
		Items:   site.Materials,
		Total:   site.MaterialsTotal(),
		Now:     now,
	})
	out, err := pdf.Render(doc, s.Options)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", typ, err)
	}
	name := pdf.FileName(typ, site.Name, now)
	return s.Upload(ctx, siteID, name, "application/pdf", int64(len(out)), bytes.NewReader(out))
}
