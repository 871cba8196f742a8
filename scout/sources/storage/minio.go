package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"scout/scout/config"
	"scout/scout/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var ErrPageNotFound = errors.New("page not archived")

// MinIOClient archives the extracted text of crawled pages.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

type PageObject struct {
	URL       string    `json:"url"`
	Text      string    `json:"extracted_text"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	bucket := cfg.MinIOBucket
	// Use insecure for local (no HTTPS)
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		logging.AppLogger.Info("created bucket", zap.String("bucket", bucket))
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// ObjectKey maps a page URL to its object name: pages/<host>/<md5 of url>.json.
// The host is kept as written; the md5 covers the full URL.
func ObjectKey(pageURL string) string {
	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return path.Join("pages", host, fmt.Sprintf("%x.json", md5.Sum([]byte(pageURL))))
}

// ArchivePage stores the page text and returns its object key. Re-archiving a
// URL overwrites the previous copy.
func (m *MinIOClient) ArchivePage(ctx context.Context, pageURL, text string) (string, error) {
	key := ObjectKey(pageURL)
	data, err := json.Marshal(PageObject{
		URL:       pageURL,
		Text:      text,
		SessionID: logging.TraceID(ctx),
		Timestamp: time.Now(),
	})
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetPageByURL reads back the archived copy of pageURL.
func (m *MinIOClient) GetPageByURL(ctx context.Context, pageURL string) (*PageObject, error) {
	return m.GetPage(ctx, ObjectKey(pageURL))
}

// GetPage reads an archived page by object key. A missing key is ErrPageNotFound.
func (m *MinIOClient) GetPage(ctx context.Context, key string) (*PageObject, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(err)
	}
	var page PageObject
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &page, nil
}

func notFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrPageNotFound
	}
	return err
}
