package vault

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	apperrors "github.com/cartercloud/cartercloud/errors"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
)

// FetchRequest ingests a file from a remote URL. Name overrides the filename
// derived from the response when set.
type FetchRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	FolderID string `json:"folderId"`
}

// IngestURL fetches the resource and stores it as a new file with a
// server-generated id. The fetch is fully validated before anything is
// written: a failed or oversized download leaves no record and no blob.
func (s *Service) IngestURL(ctx context.Context, req FetchRequest) (metadata.FileRecord, error) {
	if req.URL == "" {
		return metadata.FileRecord{}, apperrors.MissingField("url")
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return metadata.FileRecord{}, apperrors.InvalidInput("url", "must be an absolute http or https URL")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return metadata.FileRecord{}, apperrors.InvalidInput("url", err.Error())
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.metrics.RecordFetchFailure(ctx)
		return metadata.FileRecord{}, apperrors.UpstreamFetch(req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.metrics.RecordFetchFailure(ctx)
		return metadata.FileRecord{}, apperrors.UpstreamFetch(req.URL,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFetchBytes+1))
	if err != nil {
		s.metrics.RecordFetchFailure(ctx)
		return metadata.FileRecord{}, apperrors.UpstreamFetch(req.URL, err)
	}
	if int64(len(content)) > s.cfg.MaxFetchBytes {
		s.metrics.RecordFetchFailure(ctx)
		return metadata.FileRecord{}, apperrors.UpstreamFetch(req.URL,
			fmt.Errorf("resource exceeds %d bytes", s.cfg.MaxFetchBytes))
	}

	name := req.Name
	if name == "" {
		name = filenameFromResponse(resp, parsed)
	}

	id := NewID()
	if existed, err := s.blobs.Exists(ctx, id); err != nil {
		return metadata.FileRecord{}, apperrors.Internal(err)
	} else if existed {
		return metadata.FileRecord{}, apperrors.Internal(fmt.Errorf("generated id %q collides with an existing blob", id))
	}
	if err := s.blobs.Write(ctx, id, content); err != nil {
		return metadata.FileRecord{}, apperrors.Persistence("blob write", err)
	}

	now := time.Now().UnixMilli()
	rec := metadata.FileRecord{
		ID:        id,
		Name:      name,
		Size:      int64(len(content)),
		Type:      contentType(resp),
		CreatedAt: now,
		UpdatedAt: now,
		FolderID:  req.FolderID,
	}

	if err := s.meta.UpsertFile(rec); err != nil {
		if cleanupErr := s.blobs.Delete(ctx, id); cleanupErr != nil {
			s.log.Error("orphan blob left behind after failed record persist",
				logger.Fields(logger.FieldFileID, id, logger.FieldError, cleanupErr.Error()))
		}
		return metadata.FileRecord{}, apperrors.Persistence("metadata write", err)
	}

	s.metrics.RecordIngest(ctx, "fetch", rec.Size)
	s.log.Info("file fetched",
		logger.Fields(logger.FieldFileID, rec.ID, logger.FieldURL, req.URL, "size", rec.Size))
	return rec, nil
}

// filenameFromResponse picks a name for the fetched file: the upstream
// Content-Disposition filename wins, then the last URL path segment, then a
// fixed fallback.
func filenameFromResponse(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				return path.Base(fn)
			}
		}
	}
	if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
		return base
	}
	return "download"
}

// contentType returns the response media type without parameters, defaulting
// to an opaque binary type.
func contentType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.TrimSpace(strings.Split(ct, ";")[0])
}
