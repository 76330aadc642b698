package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func items() []models.ContentItem {
	desc := `Launch "v2", with commas`
	return []models.ContentItem{
		{Title: "Launch post", Description: &desc, Platform: models.PlatformSocial,
			ScheduledDate: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), Status: models.StatusScheduled},
		{Title: "Weekly, newsletter", Platform: models.PlatformEmail,
			ScheduledDate: time.Date(2024, 7, 3, 8, 30, 0, 0, time.UTC), Status: models.StatusDraft},
		{Title: "Café guide", Platform: models.PlatformBlog,
			ScheduledDate: time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), Status: models.StatusPosted},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, items()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Title,Description,Platform,Scheduled Date,Status", lines[0])
	assert.Equal(t, `"Launch post","Launch ""v2"", with commas","social","2024-07-01T10:00:00Z","scheduled"`, lines[1])
	assert.Equal(t, `"Weekly, newsletter","","email","2024-07-03T08:30:00Z","draft"`, lines[2])

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, `Launch "v2", with commas`, records[1][1])
	assert.Equal(t, "Weekly, newsletter", records[2][0])
	assert.Equal(t, "Café guide", records[3][0])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Title,Description,Platform,Scheduled Date,Status\n", buf.String())
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	long := items()
	long[0].Title = strings.Repeat("very long title ", 20)
	require.NoError(t, WritePDF(&buf, "ada@example.com", long))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, WritePDF(&buf, "", nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

type mockObjectStore struct {
	mock.Mock
	filename string
	body     []byte
}

func (m *mockObjectStore) UploadExport(ctx context.Context, userID, filename string, body io.Reader) (*storage.UploadResult, error) {
	m.filename = filename
	m.body, _ = io.ReadAll(body)
	args := m.Called(ctx, userID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return &storage.UploadResult{Key: storage.ExportKey(userID, filename), Size: int64(len(m.body))}, nil
}

func (m *mockObjectStore) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, key, expiration)
	return args.String(0), args.Error(1)
}

func TestPublishPDF(t *testing.T) {
	store := &mockObjectStore{}
	store.On("UploadExport", mock.Anything, "u1").Return(nil)
	store.On("GeneratePresignedURL", mock.Anything, mock.AnythingOfType("string"), 10*time.Minute).Return("https://s3/link", nil)

	p := NewPublisher(store, 10*time.Minute)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	link, err := p.PublishPDF(context.Background(), &models.User{ID: "u1"}, items())
	require.NoError(t, err)
	assert.Equal(t, "https://s3/link", link.URL)
	assert.Equal(t, "users/u1/exports/"+store.filename, link.Key)
	assert.Len(t, store.filename, 30, "26 character ULID plus extension")
	assert.True(t, strings.HasSuffix(store.filename, ".pdf"))
	assert.Equal(t, fixed.Add(10*time.Minute), link.ExpiresAt)
	assert.True(t, bytes.HasPrefix(store.body, []byte("%PDF-")))
	store.AssertCalled(t, "GeneratePresignedURL", mock.Anything, link.Key, 10*time.Minute)
}

func TestPublishPDFUploadFails(t *testing.T) {
	store := &mockObjectStore{}
	store.On("UploadExport", mock.Anything, "u1").Return(errors.New("bucket missing"))

	_, err := NewPublisher(store, 0).PublishPDF(context.Background(), &models.User{ID: "u1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket missing")
	store.AssertNotCalled(t, "GeneratePresignedURL", mock.Anything, mock.Anything, mock.Anything)
}
