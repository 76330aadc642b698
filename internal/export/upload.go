package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/storage"
	"github.com/oklog/ulid/v2"
)

// ObjectStore is where published exports are kept.
type ObjectStore interface {
	UploadExport(ctx context.Context, userID, filename string, body io.Reader) (*storage.UploadResult, error)
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// Link points at an uploaded export.
type Link struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Publisher uploads exports and hands out time-limited download links.
type Publisher struct {
	store ObjectStore
	ttl   time.Duration
	now   func() time.Time
}

func NewPublisher(store ObjectStore, ttl time.Duration) *Publisher {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Publisher{store: store, ttl: ttl, now: time.Now}
}

// PublishPDF renders the items, uploads them under a fresh ULID name and returns a presigned link.
func (p *Publisher) PublishPDF(ctx context.Context, user *models.User, items []models.ContentItem) (*Link, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, user.EmailAddress(), items); err != nil {
		return nil, err
	}

	filename := ulid.Make().String() + ".pdf"
	res, err := p.store.UploadExport(ctx, user.ID, filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	url, err := p.store.GeneratePresignedURL(ctx, res.Key, p.ttl)
	if err != nil {
		return nil, err
	}
	return &Link{URL: url, Key: res.Key, ExpiresAt: p.now().Add(p.ttl).UTC()}, nil
}
