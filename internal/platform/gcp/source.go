// Package gcp reads document sources from Google Cloud Storage.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

const gsScheme = "gs://"

var ErrObjectTooLarge = errors.New("object exceeds size limit")

type Object struct {
	Bucket      string
	Key         string
	Text        string
	ContentType string
}

// ObjectSource loads document text from gs:// URIs.
type ObjectSource interface {
	ReadText(ctx context.Context, uri string) (*Object, error)
	Close() error
}

// IsGSURI reports whether s names a Cloud Storage object.
func IsGSURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), gsScheme)
}

// ParseGSURI splits gs://bucket/key into its parts.
func ParseGSURI(uri string) (bucket, key string, err error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, gsScheme) {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, gsScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, key, nil
}

const storageReadOnlyScope = storage.ScopeReadOnly

type objectSource struct {
	log        *logger.Logger
	cfg        StorageConfig
	client     *storage.Client
	httpClient *http.Client
}

func NewObjectSource(ctx context.Context, log *logger.Logger, cfg StorageConfig) (ObjectSource, error) {
	if err := ValidateStorageConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxObjectBytes <= 0 {
		cfg.MaxObjectBytes = defaultMaxObjectBytes
	}
	s := &objectSource{
		log:        log.With("service", "GCSObjectSource"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	creds := credentialSource("")
	if !cfg.IsEmulator() {
		var opts []option.ClientOption
		opts, creds = readOnlyClientOptions()
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client (credentials=%s): %w", creds, err)
		}
		s.client = client
	}
	s.log.Info("Object storage initialized", "mode", cfg.Mode, "emulator_host", cfg.EmulatorHost, "credentials", creds)
	return s, nil
}

func (s *objectSource) ReadText(ctx context.Context, uri string) (*Object, error) {
	bucket, key, err := ParseGSURI(uri)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var (
		body        io.ReadCloser
		contentType string
	)
	if s.cfg.IsEmulator() {
		body, contentType, err = s.openEmulator(ctx, bucket, key)
	} else {
		var r *storage.Reader
		r, err = s.client.Bucket(bucket).Object(key).NewReader(ctx)
		if err == nil {
			body, contentType = r, r.Attrs.ContentType
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if int64(len(raw)) > s.cfg.MaxObjectBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", uri, ErrObjectTooLarge, s.cfg.MaxObjectBytes)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%s: object is not utf-8 text", uri)
	}
	return &Object{Bucket: bucket, Key: key, Text: string(raw), ContentType: contentType}, nil
}

func (s *objectSource) openEmulator(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(s.cfg.EmulatorHost, "/"), url.PathEscape(bucket), url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (s *objectSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
