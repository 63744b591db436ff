// Package vault implements the storage service's core operations: ingesting
// files (direct upload or remote fetch), listing, download, delete, and the
// folder tree. It coordinates the metadata store and the blob store so the
// two stay consistent, with metadata as the source of truth.
package vault

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/cartercloud/cartercloud/blob"
	apperrors "github.com/cartercloud/cartercloud/errors"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
	"github.com/cartercloud/cartercloud/observability"
)

// Config holds the tunables for remote-fetch ingestion.
type Config struct {
	// FetchTimeout bounds a single remote fetch end to end.
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	// MaxFetchBytes caps the size of a fetched resource.
	MaxFetchBytes int64 `yaml:"max_fetch_bytes" mapstructure:"max_fetch_bytes"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxFetchBytes <= 0 {
		c.MaxFetchBytes = 1 << 30 // 1 GiB
	}
}

// Service wires the metadata and blob stores together.
type Service struct {
	meta    *metadata.Store
	blobs   blob.Store
	client  *http.Client
	cfg     Config
	log     *logger.Logger
	metrics *observability.Metrics
}

// New creates the service. metrics may be nil when telemetry is disabled.
func New(meta *metadata.Store, blobs blob.Store, cfg Config, log *logger.Logger, metrics *observability.Metrics) *Service {
	cfg.ApplyDefaults()
	return &Service{
		meta:    meta,
		blobs:   blobs,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		cfg:     cfg,
		log:     log.WithComponent("vault"),
		metrics: metrics,
	}
}

// List reconciles the metadata against blob storage and returns the current
// document. Records whose blob went missing out-of-band are pruned before the
// listing is produced, so clients never see entries they cannot download.
func (s *Service) List(ctx context.Context) (metadata.Document, error) {
	pruned, err := s.meta.Reconcile(func(id string) bool {
		ok, err := s.blobs.Exists(ctx, id)
		if err != nil {
			// Treat probe failures as present; pruning on a transient
			// error would drop live records.
			s.log.Warn("blob existence probe failed",
				logger.Fields(logger.FieldFileID, id, logger.FieldError, err.Error()))
			return true
		}
		return ok
	})
	if err != nil {
		return metadata.Document{}, apperrors.Persistence("reconcile", err)
	}
	s.metrics.RecordReconcile(ctx, pruned)

	return s.meta.Snapshot(), nil
}

// Download returns the record and content for the given id. The record is
// synthesized from the id when metadata has no entry for an existing blob, so
// a half-repaired store still serves its bytes.
func (s *Service) Download(ctx context.Context, id string) (metadata.FileRecord, []byte, error) {
	if err := blob.ValidateID(id); err != nil {
		return metadata.FileRecord{}, nil, apperrors.InvalidInput("id", err.Error())
	}

	data, err := s.blobs.Read(ctx, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return metadata.FileRecord{}, nil, apperrors.NotFound("file", id)
		}
		return metadata.FileRecord{}, nil, apperrors.Internal(err)
	}

	rec, ok := s.meta.FileByID(id)
	if !ok {
		rec = metadata.FileRecord{
			ID:   id,
			Name: id,
			Size: int64(len(data)),
			Type: "application/octet-stream",
		}
	}
	return rec, data, nil
}

// Delete removes the blob and the metadata record for id. Deleting an id
// that does not exist anywhere is a success; the end state is the same.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := blob.ValidateID(id); err != nil {
		return apperrors.InvalidInput("id", err.Error())
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		return apperrors.Persistence("blob delete", err)
	}
	if err := s.meta.RemoveFile(id); err != nil {
		return apperrors.Persistence("metadata delete", err)
	}

	s.metrics.RecordDelete(ctx)
	s.log.Info("file deleted", logger.Fields(logger.FieldFileID, id))
	return nil
}

// DeleteFolder removes the folder, every folder beneath it, and every file in
// any of those folders. Blobs are deleted before records so a partial failure
// leaves records that the next reconcile pass cleans up.
func (s *Service) DeleteFolder(ctx context.Context, folderID string) error {
	if folderID == "" {
		return apperrors.MissingField("folderId")
	}

	doc := s.meta.Snapshot()

	doomed := map[string]bool{folderID: true}
	// Folders arrive in arbitrary order; iterate until the closure is stable.
	for {
		grew := false
		for _, f := range doc.Folders {
			if f.ParentID != "" && doomed[f.ParentID] && !doomed[f.ID] {
				doomed[f.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	found := false
	kept := make([]metadata.Folder, 0, len(doc.Folders))
	for _, f := range doc.Folders {
		if doomed[f.ID] {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return apperrors.NotFound("folder", folderID)
	}

	removed := 0
	for _, rec := range doc.Files {
		if rec.FolderID == "" || !doomed[rec.FolderID] {
			continue
		}
		if err := s.blobs.Delete(ctx, rec.ID); err != nil {
			return apperrors.Persistence("blob delete", err)
		}
		if err := s.meta.RemoveFile(rec.ID); err != nil {
			return apperrors.Persistence("metadata delete", err)
		}
		removed++
	}

	if err := s.meta.ReplaceFolders(kept); err != nil {
		return apperrors.Persistence("folder delete", err)
	}

	s.log.Info("folder deleted",
		logger.Fields(logger.FieldFolderID, folderID,
			"folders_removed", len(doc.Folders)-len(kept), "files_removed", removed))
	return nil
}

// ReplaceFolders validates and installs a new folder tree. The client sends
// the entire tree on every structural change.
func (s *Service) ReplaceFolders(ctx context.Context, folders []metadata.Folder) error {
	if err := validateFolderTree(folders); err != nil {
		return err
	}
	if err := s.meta.ReplaceFolders(folders); err != nil {
		return apperrors.Persistence("folder replace", err)
	}
	s.log.Info("folder tree replaced", logger.Fields("folders", len(folders)))
	return nil
}

// SweepOrphans deletes blobs that have no metadata record. Requires a blob
// provider that can enumerate ids. Returns the number of blobs removed.
func (s *Service) SweepOrphans(ctx context.Context) (int, error) {
	lister, ok := s.blobs.(blob.Lister)
	if !ok {
		return 0, apperrors.Validation("the configured blob provider cannot enumerate blobs")
	}

	ids, err := lister.IDs(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	known := make(map[string]bool)
	for _, rec := range s.meta.Files() {
		known[rec.ID] = true
	}

	swept := 0
	for _, id := range ids {
		if known[id] {
			continue
		}
		if err := s.blobs.Delete(ctx, id); err != nil {
			return swept, apperrors.Persistence("blob delete", err)
		}
		s.log.Info("removed orphan blob", logger.Fields(logger.FieldFileID, id))
		swept++
	}
	return swept, nil
}

// validateFolderTree rejects trees with duplicate ids, dangling parents, or
// parent cycles. A folder with an empty ParentID is a root.
func validateFolderTree(folders []metadata.Folder) error {
	byID := make(map[string]metadata.Folder, len(folders))
	for _, f := range folders {
		if f.ID == "" {
			return apperrors.MissingField("folder.id")
		}
		if f.Name == "" {
			return apperrors.MissingField("folder.name")
		}
		if _, dup := byID[f.ID]; dup {
			return apperrors.Validation("duplicate folder id: " + f.ID)
		}
		byID[f.ID] = f
	}

	for _, f := range folders {
		if f.ParentID == "" {
			continue
		}
		if _, ok := byID[f.ParentID]; !ok {
			return apperrors.Validation("folder " + f.ID + " references unknown parent " + f.ParentID)
		}
		// Walk to the root; revisiting a folder means the parent chain loops.
		seen := map[string]bool{f.ID: true}
		for cur := f.ParentID; cur != ""; cur = byID[cur].ParentID {
			if seen[cur] {
				return apperrors.Validation("folder parent chain contains a cycle at " + cur)
			}
			seen[cur] = true
		}
	}
	return nil
}
