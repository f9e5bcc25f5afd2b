package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/pipeline"
	"github.com/andresuchdata/stockfloat/internal/storage"
	"github.com/andresuchdata/stockfloat/internal/workbook"
)

type IngestService struct {
	orchestrator *pipeline.Orchestrator
	archive      *storage.Archive
}

// NewIngestService wires uploads to the orchestrator. archive may be nil.
func NewIngestService(orchestrator *pipeline.Orchestrator, archive *storage.Archive) *IngestService {
	return &IngestService{orchestrator: orchestrator, archive: archive}
}

// IngestBytes parses a workbook, replaces its sheets in the category and archives the raw
// file. The returned status is always populated, also on error.
func (s *IngestService) IngestBytes(ctx context.Context, category domain.Category, fileName string, data []byte) (domain.UploadStatus, error) {
	status, err := s.ingest(ctx, category, fileName, data)
	if err != nil {
		return status, err
	}

	if s.archive != nil {
		key, err := s.archive.Put(ctx, category, fileName, data)
		if err != nil {
			log.Warn().Err(err).Str("file", fileName).Msg("ingest: archive upload failed")
		} else {
			log.Debug().Str("key", key).Msg("ingest: upload archived")
		}
	}
	return status, nil
}

func (s *IngestService) ingest(ctx context.Context, category domain.Category, fileName string, data []byte) (domain.UploadStatus, error) {
	failed := pipeline.Report{Run: pipeline.Run{Category: category, FileName: fileName}}

	sheets, err := workbook.Read(bytes.NewReader(data), fileName)
	if err != nil {
		err = fmt.Errorf("read %s: %w", fileName, err)
		return failed.Status(err), err
	}

	report, err := s.orchestrator.Ingest(ctx, pipeline.Upload{Category: category, FileName: fileName, Sheets: sheets})
	return report.Status(err), err
}

// IngestReader reads r fully and ingests it.
func (s *IngestService) IngestReader(ctx context.Context, category domain.Category, fileName string, r io.Reader) (domain.UploadStatus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		failed := pipeline.Report{Run: pipeline.Run{Category: category, FileName: fileName}}
		err = fmt.Errorf("read upload: %w", err)
		return failed.Status(err), err
	}
	return s.IngestBytes(ctx, category, fileName, data)
}

// IngestPath ingests a workbook from the local filesystem.
func (s *IngestService) IngestPath(ctx context.Context, category domain.Category, path string) (domain.UploadStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		failed := pipeline.Report{Run: pipeline.Run{Category: category, FileName: filepath.Base(path)}}
		return failed.Status(err), err
	}
	return s.IngestBytes(ctx, category, filepath.Base(path), data)
}

// Reingest replays an archived upload without archiving it again.
func (s *IngestService) Reingest(ctx context.Context, key string) (domain.UploadStatus, error) {
	if s.archive == nil {
		return domain.UploadStatus{}, fmt.Errorf("upload archive is not configured")
	}
	up, data, err := s.archive.Fetch(ctx, key)
	if err != nil {
		return domain.UploadStatus{}, err
	}
	return s.ingest(ctx, up.Category, up.FileName, data)
}

// Archived lists archived uploads, newest first.
func (s *IngestService) Archived(ctx context.Context, category domain.Category) ([]storage.ArchivedUpload, error) {
	if s.archive == nil {
		return []storage.ArchivedUpload{}, nil
	}
	return s.archive.List(ctx, category)
}

// Runs returns recent ingestion runs.
func (s *IngestService) Runs(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.orchestrator.Runs().ListRuns(ctx, limit)
}
