package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	FileExt      string
	Size         int64
	Deduplicated bool
	ReceiptID    uuid.UUID
	Status       constants.Status
	Record       *parser.Record
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch command depends on.
type Ingestor interface {
	// IngestPath recognizes a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory recognizes all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
