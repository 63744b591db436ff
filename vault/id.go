package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID generates a blob id for server-side ingestion: a millisecond
// timestamp prefix keeps directory listings roughly chronological, the uuid
// suffix makes collisions between concurrent ingests implausible.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
