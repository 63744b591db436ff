package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cartercloud/cartercloud/logger"
)

// ErrPersist wraps disk write failures. The in-memory document is rolled back
// before the error is returned, so callers must treat the operation as not
// committed.
var ErrPersist = errors.New("metadata: persist failed")

// Store is the single owner of the metadata document. All mutations are
// serialized by a mutex and persisted synchronously before returning; two
// in-flight mutations can never interleave their full-document rewrites.
type Store struct {
	mu   sync.Mutex
	path string
	doc  Document
	log  *logger.Logger
}

// Open loads the document at path, creating an empty one if absent. A file
// that exists but fails to parse is quarantined (renamed with a .corrupt
// suffix) and the store starts empty; prior data is preserved on disk for
// manual recovery.
func Open(path string, log *logger.Logger) (*Store, error) {
	s := &Store{
		path: path,
		doc:  Document{Files: []FileRecord{}, Folders: []Folder{}},
		log:  log.WithComponent("metadata"),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("metadata: create data directory: %w", err)
		}
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		s.log.Info("initialized empty metadata document", logger.Fields("path", path))
	case err != nil:
		return nil, fmt.Errorf("metadata: read document: %w", err)
	default:
		var doc Document
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr != nil {
			quarantine := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
			if renameErr := os.Rename(path, quarantine); renameErr != nil {
				return nil, fmt.Errorf("metadata: quarantine malformed document: %w", renameErr)
			}
			s.log.Warn("metadata document malformed, quarantined and starting empty",
				logger.Fields("path", path, "quarantine", quarantine, "error", jsonErr.Error()))
			if err := s.persistLocked(); err != nil {
				return nil, err
			}
			break
		}
		if doc.Files == nil {
			doc.Files = []FileRecord{}
		}
		if doc.Folders == nil {
			doc.Folders = []Folder{}
		}
		s.doc = doc
		s.log.Info("metadata document loaded",
			logger.Fields("files", len(doc.Files), "folders", len(doc.Folders)))
	}

	return s, nil
}

// Path returns the location of the persisted document.
func (s *Store) Path() string { return s.path }

// Files returns a snapshot of the current file records.
func (s *Store) Files() []FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.clone().Files
}

// Folders returns a snapshot of the current folders.
func (s *Store) Folders() []Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.clone().Folders
}

// Snapshot returns a consistent copy of the whole document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.clone()
}

// FileByID returns the record with the given id, if present.
func (s *Store) FileByID(id string) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.doc.Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileRecord{}, false
}

// UpsertFile appends or replaces a record by id and persists the document
// before returning. On persist failure the in-memory state is rolled back.
func (s *Store) UpsertFile(rec FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.clone()

	replaced := false
	for i, f := range s.doc.Files {
		if f.ID == rec.ID {
			s.doc.Files[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		s.doc.Files = append(s.doc.Files, rec)
	}

	if err := s.persistLocked(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// RemoveFile removes a record by id if present and persists. Removing an
// unknown id is not an error.
func (s *Store) RemoveFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.clone()

	kept := s.doc.Files[:0]
	for _, f := range s.doc.Files {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(prev.Files) {
		return nil
	}
	s.doc.Files = kept

	if err := s.persistLocked(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// ReplaceFolders replaces the folder collection wholesale and persists. The
// folder-tree editing protocol sends the entire tree on every structural
// change; this is O(total folders) per edit and accepted for small trees.
func (s *Store) ReplaceFolders(folders []Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.clone()

	if folders == nil {
		folders = []Folder{}
	}
	s.doc.Folders = make([]Folder, len(folders))
	copy(s.doc.Folders, folders)

	if err := s.persistLocked(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// Reconcile filters file records to those whose blob predicate returns true
// and persists only when something was pruned. Calling it again immediately
// is a no-op. Returns the number of pruned records.
func (s *Store) Reconcile(blobExists func(id string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.clone()

	kept := make([]FileRecord, 0, len(s.doc.Files))
	for _, f := range s.doc.Files {
		if blobExists(f.ID) {
			kept = append(kept, f)
		}
	}
	pruned := len(s.doc.Files) - len(kept)
	if pruned == 0 {
		return 0, nil
	}
	s.doc.Files = kept

	if err := s.persistLocked(); err != nil {
		s.doc = prev
		return 0, err
	}

	s.log.Info("pruned stale file records", logger.Fields("pruned", pruned))
	return pruned, nil
}

// persistLocked rewrites the document atomically: marshal, write to a temp
// file in the same directory, then rename over the target. Callers must hold
// the mutex.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}
	return nil
}
