package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpe/letslegal-api/internal/models"
	appErrors "github.com/kioskpe/letslegal-api/pkg/errors"
	"github.com/kioskpe/letslegal-api/pkg/storage"
)

type fakeExportRepo struct {
	requests []models.ServiceRequest
}

func (f *fakeExportRepo) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, int, error) {
	return f.requests, len(f.requests), nil
}

func newExportService(t *testing.T, repo exportRequestRepository) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", 30*time.Minute)
	return NewExportService(repo, store, signer, nil, "https://api.letslegal.example")
}

func TestExportGenerateCSVAndDownload(t *testing.T) {
	repo := &fakeExportRepo{requests: []models.ServiceRequest{
		{ID: "req-1", Name: "Asha Rao", Email: "asha@example.com", ServiceType: models.ServiceGSTRegistration, Status: models.StatusPending, Priority: models.PriorityMedium, CreatedAt: time.Now()},
	}}
	svc := newExportService(t, repo)

	result, err := svc.Generate(context.Background(), models.ServiceRequestFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 1, result.RowCount)
	assert.Contains(t, result.DownloadURL, "token=")

	token := result.DownloadURL[strings.Index(result.DownloadURL, "token=")+len("token="):]
	file, name, err := svc.Download(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, result.FileName, name)

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "req-1")
	assert.Contains(t, string(content), "gst-registration")
}

func TestExportGenerateRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(t, &fakeExportRepo{})

	_, err := svc.Generate(context.Background(), models.ServiceRequestFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportDownloadRejectsTamperedToken(t *testing.T) {
	repo := &fakeExportRepo{requests: []models.ServiceRequest{{ID: "req-1", CreatedAt: time.Now()}}}
	svc := newExportService(t, repo)

	result, err := svc.Generate(context.Background(), models.ServiceRequestFilter{}, "pdf")
	require.NoError(t, err)

	token := result.DownloadURL[strings.Index(result.DownloadURL, "token=")+len("token="):]
	_, _, err = svc.Download(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
