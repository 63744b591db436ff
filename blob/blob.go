// Package blob provides durable byte storage addressed by opaque id.
// Supported providers: local filesystem (default) and S3-compatible object
// stores. Folder hierarchy is virtual and lives in metadata only; providers
// see a flat id namespace.
package blob

import (
	"context"
	"fmt"

	"github.com/cartercloud/cartercloud/logger"
)

// Store defines the blob storage operations the service depends on.
type Store interface {
	// Write creates or overwrites the blob at id.
	Write(ctx context.Context, id string, data []byte) error

	// Read returns the full content of the blob at id.
	Read(ctx context.Context, id string) ([]byte, error)

	// Exists checks whether a blob exists at id.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the blob at id. Deleting a nonexistent blob is not an
	// error.
	Delete(ctx context.Context, id string) error
}

// Lister is optionally implemented by providers that can enumerate stored
// ids. The orphan-blob sweep requires it.
type Lister interface {
	IDs(ctx context.Context) ([]string, error)
}

// Factory creates a Store from configuration. Each provider type-asserts the
// parts of Config it needs.
type Factory func(cfg Config, log *logger.Logger) (Store, error)

var factories = make(map[string]Factory)

// Register registers a storage backend factory for the given provider name.
// Provider files call this from init.
func Register(name string, f Factory) {
	factories[name] = f
}

// New creates a Store based on cfg.Provider.
func New(cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("blob: unsupported provider %q", cfg.Provider)
	}

	l := log.WithComponent("blob")
	l.Info("initializing blob store", logger.Fields("provider", cfg.Provider))
	return f(cfg, l)
}
