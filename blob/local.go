package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/cartercloud/cartercloud/logger"
)

func init() {
	Register(ProviderLocal, func(cfg Config, log *logger.Logger) (Store, error) {
		return NewLocal(cfg.Path, cfg.Compression == CompressionZstd)
	})
}

// zstd frame magic; used to recognize compressed blobs regardless of the
// current compression setting, so toggling the option never breaks reads.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Local stores one opaque file per blob id under a single flat directory.
type Local struct {
	dir      string
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewLocal creates a local blob store rooted at dir, creating the directory
// if needed.
func NewLocal(dir string, compress bool) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create directory: %w", err)
	}

	l := &Local{dir: abs, compress: compress}
	if compress {
		if l.enc, err = zstd.NewWriter(nil); err != nil {
			return nil, fmt.Errorf("blob: init zstd encoder: %w", err)
		}
	}
	if l.dec, err = zstd.NewReader(nil); err != nil {
		return nil, fmt.Errorf("blob: init zstd decoder: %w", err)
	}
	return l, nil
}

// Dir returns the blob directory.
func (l *Local) Dir() string { return l.dir }

// Write stores data under id. The write goes to a temp file first and is
// renamed into place, so a blob either fully exists or doesn't.
func (l *Local) Write(ctx context.Context, id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}

	if l.compress {
		data = l.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	tmp, err := os.CreateTemp(l.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("blob: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blob: write %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob: close %q: %w", id, err)
	}
	if err := os.Rename(tmpName, filepath.Join(l.dir, id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob: commit %q: %w", id, err)
	}
	return nil
}

// Read returns the full content of the blob at id.
func (l *Local) Read(ctx context.Context, id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(l.dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob: %q: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("blob: read %q: %w", id, err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		out, err := l.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("blob: decompress %q: %w", id, err)
		}
		return out, nil
	}
	return data, nil
}

// Exists checks whether a blob exists at id.
func (l *Local) Exists(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(l.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blob: stat %q: %w", id, err)
	}
	return true, nil
}

// Delete removes the blob at id. Idempotent.
func (l *Local) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.dir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: delete %q: %w", id, err)
	}
	return nil
}

// IDs enumerates all stored blob ids.
func (l *Local) IDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("blob: list: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// compile-time checks
var (
	_ Store  = (*Local)(nil)
	_ Lister = (*Local)(nil)
)
