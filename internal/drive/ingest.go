package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/workbook"
)

// FileIngester ingests one downloaded workbook.
type FileIngester interface {
	IngestBytes(ctx context.Context, category domain.Category, fileName string, data []byte) (domain.UploadStatus, error)
}

type IngestService struct {
	source   Source
	ingester FileIngester
}

func NewIngestService(source Source, ingester FileIngester) *IngestService {
	return &IngestService{
		source:   source,
		ingester: ingester,
	}
}

// CategoryFromName guesses the upload category from a Drive file name.
func CategoryFromName(name string) (domain.Category, bool) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "depletion"):
		return domain.CategorySalesDepletion, true
	case strings.Contains(n, "export"), strings.Contains(n, "shipment"):
		return domain.CategoryExports, true
	case strings.Contains(n, "stock"), strings.Contains(n, "soh"), strings.Contains(n, "inventory"):
		return domain.CategoryStockOnHand, true
	}
	return "", false
}

// IngestFile downloads one file and ingests it. An empty category is inferred
// from the file name.
func (s *IngestService) IngestFile(ctx context.Context, fileID string, category domain.Category) (domain.UploadStatus, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return domain.UploadStatus{}, err
	}
	if category == "" {
		var ok bool
		if category, ok = CategoryFromName(f.Name); !ok {
			return domain.UploadStatus{}, fmt.Errorf("cannot infer category for %q", f.Name)
		}
	}
	return s.ingest(ctx, f, category)
}

func (s *IngestService) ingest(ctx context.Context, f *File, category domain.Category) (domain.UploadStatus, error) {
	if _, err := workbook.DetectFormat(f.Name); err != nil {
		return domain.UploadStatus{}, err
	}

	var buf bytes.Buffer
	if err := s.source.DownloadFile(ctx, f.ID, &buf); err != nil {
		return domain.UploadStatus{}, fmt.Errorf("failed to download %s: %w", f.Name, err)
	}

	return s.ingester.IngestBytes(ctx, category, f.Name, buf.Bytes())
}

// SyncFolder ingests every recognizable workbook in a folder. A failing file is
// reported in its status and does not stop the rest.
func (s *IngestService) SyncFolder(ctx context.Context, folderID string) ([]domain.UploadStatus, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	statuses := make([]domain.UploadStatus, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return statuses, err
		}
		if _, err := workbook.DetectFormat(f.Name); err != nil {
			continue
		}
		category, ok := CategoryFromName(f.Name)
		if !ok {
			log.Warn().Str("file", f.Name).Msg("drive sync: skipping file with unknown category")
			continue
		}

		status, err := s.ingest(ctx, f, category)
		if err != nil {
			log.Error().Err(err).Str("file", f.Name).Msg("drive sync: ingestion failed")
			if status.Err == "" {
				status = domain.UploadStatus{Category: category, FileName: f.Name, Message: "error: " + err.Error(), Err: err.Error()}
			}
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
