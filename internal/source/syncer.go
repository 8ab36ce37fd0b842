package source

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/bull/docindex/internal/ingest"
)

// SyncResult contains statistics about one sync run.
type SyncResult struct {
	TotalFiles      int
	SuccessfulFiles int
	TotalChunks     int
	FailedFiles     []FailedFile
	CommitSHA       string
	Duration        time.Duration
}

// FailedFile is a file that could not be ingested.
type FailedFile struct {
	Path   string
	Reason string
}

// Syncer mirrors a repository folder into the shared catalog namespace.
type Syncer struct {
	fetcher  *Fetcher
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// NewSyncer creates a syncer over the given fetcher and ingest pipeline.
func NewSyncer(fetcher *Fetcher, pipeline *ingest.Pipeline, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		fetcher:  fetcher,
		pipeline: pipeline,
		logger:   logger,
	}
}

// SyncAll fetches every supported file under the source folder and ingests
// it into the shared catalog. Re-uploads replace: each file's prior chunks
// are deleted before the fresh set is written. Files that fail are skipped
// and reported, not fatal.
func (s *Syncer) SyncAll(ctx context.Context) (*SyncResult, error) {
	start := time.Now()
	result := &SyncResult{}

	commitSHA, err := s.fetcher.LatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	s.logger.Info("Starting sync", "commit", commitSHA)

	paths, err := s.fetcher.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	result.TotalFiles = len(paths)
	s.logger.Info("Found files", "count", len(paths))

	for _, filePath := range paths {
		chunks, err := s.syncFile(ctx, filePath)
		if err != nil {
			s.logger.Warn("Failed to sync file", "path", filePath, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				Path:   filePath,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulFiles++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	s.logger.Info("Sync complete",
		"successful", result.SuccessfulFiles,
		"failed", len(result.FailedFiles),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Syncer) syncFile(ctx context.Context, filePath string) (int, error) {
	fetched, err := s.fetcher.FetchFile(ctx, filePath)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	upload := ingest.Upload{
		DocumentID: documentIDFor(filePath),
		OwnerID:    "catalog",
		Filename:   path.Base(filePath),
		MIMEType:   mime.TypeByExtension(path.Ext(filePath)),
		Data:       fetched.Content,
		Shared:     true,
	}

	// Documents are superseded, never mutated: clear prior chunks first.
	if _, err := s.pipeline.DeleteDocument(ctx, upload.OwnerID, upload.DocumentID, true); err != nil {
		return 0, fmt.Errorf("delete stale chunks: %w", err)
	}

	ingested, err := s.pipeline.IngestDocument(ctx, upload)
	if err != nil {
		return 0, err
	}
	return ingested.ChunkCount, nil
}

// documentIDFor derives a stable document id from a repository path.
func documentIDFor(filePath string) string {
	id := strings.TrimSuffix(filePath, path.Ext(filePath))
	replacer := strings.NewReplacer("/", "_", " ", "_", ".", "_")
	return replacer.Replace(id)
}
