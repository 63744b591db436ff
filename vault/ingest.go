package vault

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/cartercloud/cartercloud/blob"
	apperrors "github.com/cartercloud/cartercloud/errors"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
)

// UploadRequest is a direct upload: the client supplies the id and the
// content as base64, optionally wrapped in a data URI.
type UploadRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	FolderID string `json:"folderId"`
}

// IngestUpload decodes and stores an uploaded file. The blob is written
// first, then the metadata record; if persisting the record fails, a blob
// this ingest created is removed again so nothing half-exists.
func (s *Service) IngestUpload(ctx context.Context, req UploadRequest) (metadata.FileRecord, error) {
	if req.ID == "" {
		return metadata.FileRecord{}, apperrors.MissingField("id")
	}
	if req.Data == "" {
		return metadata.FileRecord{}, apperrors.MissingField("data")
	}
	if err := blob.ValidateID(req.ID); err != nil {
		return metadata.FileRecord{}, apperrors.InvalidInput("id", err.Error())
	}

	payload := stripDataURI(req.Data)
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return metadata.FileRecord{}, apperrors.InvalidInput("data", "content is not valid base64")
	}

	// Ids are generated to be unique; a collision means two ingests raced to
	// the same id and the later one must fail rather than overwrite.
	existed, err := s.blobs.Exists(ctx, req.ID)
	if err != nil {
		return metadata.FileRecord{}, apperrors.Internal(err)
	}
	if existed {
		return metadata.FileRecord{}, apperrors.Validation("a file with this id already exists")
	}

	if err := s.blobs.Write(ctx, req.ID, content); err != nil {
		return metadata.FileRecord{}, apperrors.Persistence("blob write", err)
	}

	now := time.Now().UnixMilli()
	rec := metadata.FileRecord{
		ID:        req.ID,
		Name:      req.Name,
		Size:      int64(len(content)), // decoded length, not the client's claim
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
		FolderID:  req.FolderID,
	}
	if rec.Name == "" {
		rec.Name = req.ID
	}
	if rec.Type == "" {
		rec.Type = "application/octet-stream"
	}

	if err := s.meta.UpsertFile(rec); err != nil {
		if cleanupErr := s.blobs.Delete(ctx, req.ID); cleanupErr != nil {
			s.log.Error("orphan blob left behind after failed record persist",
				logger.Fields(logger.FieldFileID, req.ID, logger.FieldError, cleanupErr.Error()))
		}
		return metadata.FileRecord{}, apperrors.Persistence("metadata write", err)
	}

	s.metrics.RecordIngest(ctx, "upload", rec.Size)
	s.log.Info("file uploaded",
		logger.Fields(logger.FieldFileID, rec.ID, "name", rec.Name, "size", rec.Size))
	return rec, nil
}

// stripDataURI removes a leading "data:<mediatype>;base64," prefix if
// present, leaving the raw base64 payload untouched otherwise.
func stripDataURI(data string) string {
	if !strings.HasPrefix(data, "data:") {
		return data
	}
	if i := strings.Index(data, ","); i >= 0 {
		return data[i+1:]
	}
	return data
}
