package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
	"github.com/joseph-ayodele/receipt-recognizer/internal/utils"
)

// Recognizer turns a receipt file into a record.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) (pipeline.Result, error)
}

// FSIngestor reads receipt files from the local filesystem.
type FSIngestor struct {
	Recognizer  Recognizer
	Receipts    repository.ReceiptRepository // optional; enables dedup before recognition
	AllowedExts map[string]struct{}          // lowercased sans '.'; nil -> default set
	Logger      *slog.Logger
}

func NewFSIngestor(rec Recognizer, receipts repository.ReceiptRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Recognizer: rec, Receipts: receipts, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext, i.AllowedExts) {
		return out, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}
	out.FileExt = ext

	hash, size, err := utils.HashFile(abs)
	if err != nil {
		i.Logger.Error("hash error", "path", abs, "error", err)
		return out, err
	}
	out.HashHex, out.Size = hash, size
	if size == 0 {
		return out, common.ErrEmptyFile
	}

	if i.Receipts != nil {
		stored, err := i.Receipts.GetByHash(ctx, hash)
		switch {
		case err == nil:
			out.Deduplicated = true
			out.ReceiptID = stored.ID
			out.Status = constants.StatusDuplicate
			out.Record = &stored.Record
			i.Logger.Info("ingest.dedup", "path", abs, "receipt_id", stored.ID)
			return out, nil
		case !errors.Is(err, common.ErrNotFound):
			return out, err
		}
	}

	res, err := i.Recognizer.RecognizeFile(ctx, abs)
	if err != nil {
		out.Status = constants.StatusFailed
		return out, err
	}
	out.ReceiptID = res.ReceiptID
	out.Status = res.Status
	out.Deduplicated = res.Status == constants.StatusDuplicate
	out.Record = &res.Record
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path), i.AllowedExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			i.Logger.Warn("ingest.failed", "path", path, "error", err)
			r.Err = err.Error()
			r.Status = constants.StatusFailed
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("ingest.dir.done", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
