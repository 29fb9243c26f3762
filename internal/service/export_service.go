package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kioskpe/letslegal-api/internal/dto"
	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
	"github.com/kioskpe/letslegal-api/pkg/export"
	"github.com/kioskpe/letslegal-api/pkg/storage"
)

type exportRequestRepository interface {
	List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error)
}

// ExportService renders service-request listings into downloadable CSV or PDF
// files with signed, expiring download links.
type ExportService struct {
	repo    exportRequestRepository
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	baseURL string
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportRequestRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, baseURL string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var exportHeaders = []string{"Reference", "Customer", "Email", "Service", "Status", "Priority", "Submitted", "Completed"}

// Generate renders the filtered request list in the requested format and
// returns a signed download link.
func (s *ExportService) Generate(ctx context.Context, filter models.ServiceRequestFilter, format string) (*dto.ExportResult, error) {
	format = strings.ToLower(format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter.Page = 1
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	requests, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests for export")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(requests))}
	for _, req := range requests {
		completed := ""
		if req.CompletedDate != nil {
			completed = req.CompletedDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Reference": req.ID,
			"Customer":  req.Name,
			"Email":     req.Email,
			"Service":   string(req.ServiceType),
			"Status":    string(req.Status),
			"Priority":  string(req.Priority),
			"Submitted": req.CreatedAt.Format("2006-01-02"),
			"Completed": completed,
		})
	}

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Service Requests")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("service-requests-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	relPath := fmt.Sprintf("%s/%s", exportID, fileName)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.ExportResult{
		ExportID:    exportID,
		Format:      format,
		FileName:    fileName,
		RowCount:    len(dataset.Rows),
		DownloadURL: fmt.Sprintf("%s/api/services/export/download?token=%s", s.baseURL, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Download validates a signed token and opens the referenced export file.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}

	parts := strings.Split(relPath, "/")
	return file, parts[len(parts)-1], nil
}

// Cleanup removes export files older than the TTL.
func (s *ExportService) Cleanup(ttl time.Duration) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("cleaned up expired exports", zap.Int("count", len(deleted)))
	}
}
