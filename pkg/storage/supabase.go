package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/retry"
)

// SupabaseStore talks to Supabase Storage over its REST API.
type SupabaseStore struct {
	baseURL    string
	bucket     string
	serviceKey string
	client     *http.Client
	retry      *retry.Config
	logger     *zap.Logger
}

var _ Store = (*SupabaseStore)(nil)

// SupabaseConfig configures a SupabaseStore.
type SupabaseConfig struct {
	URL        string
	Bucket     string
	ServiceKey string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// Retry defaults to retry.DefaultConfig().
	Retry *retry.Config
}

// NewSupabaseStore creates a store for one bucket.
func NewSupabaseStore(cfg SupabaseConfig, logger *zap.Logger) *SupabaseStore {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	rc := cfg.Retry
	if rc == nil {
		rc = retry.DefaultConfig()
	}
	return &SupabaseStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		bucket:     cfg.Bucket,
		serviceKey: cfg.ServiceKey,
		client:     client,
		retry:      rc,
		logger:     logger.Named("supabase-storage"),
	}
}

// HTTPError is a non-2xx response from the storage API.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("storage %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable reports whether the status is worth retrying.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (s *SupabaseStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	err := retry.DoIfRetryable(ctx, s.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("", key), bytes.NewReader(data))
		if err != nil {
			return err
		}
		s.authorize(req)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "true")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return checkResponse("upload", resp)
	})
	if err != nil {
		s.logger.Error("Upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}

	return s.objectURL("public", key), nil
}

func (s *SupabaseStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := validateKey(key); err != nil {
		return nil, "", err
	}

	var data []byte
	var contentType string
	err := retry.DoIfRetryable(ctx, s.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL("authenticated", key), nil)
		if err != nil {
			return err
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := checkResponse("download", resp); err != nil {
			return err
		}

		data, err = io.ReadAll(resp.Body)
		contentType = resp.Header.Get("Content-Type")
		return err
	})
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) && (he.StatusCode == http.StatusNotFound || he.StatusCode == http.StatusBadRequest) {
			return nil, "", notFound(key)
		}
		return nil, "", fmt.Errorf("failed to download %q: %w", key, err)
	}
	return data, contentType, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := retry.DoIfRetryable(ctx, s.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL("", key), nil)
		if err != nil {
			return err
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return checkResponse("delete", resp)
	})
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) && (he.StatusCode == http.StatusNotFound || he.StatusCode == http.StatusBadRequest) {
			return nil
		}
		s.logger.Error("Delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// objectURL builds <url>/storage/v1/object[/<scope>]/<bucket>/<key>.
func (s *SupabaseStore) objectURL(scope, key string) string {
	parts := []string{s.baseURL, "storage/v1/object"}
	if scope != "" {
		parts = append(parts, scope)
	}
	parts = append(parts, url.PathEscape(s.bucket))
	for _, p := range strings.Split(key, "/") {
		parts = append(parts, url.PathEscape(p))
	}
	return strings.Join(parts, "/")
}

func (s *SupabaseStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}

func checkResponse(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
