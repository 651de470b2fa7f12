// Package tika extracts resume text through an Apache Tika server.
//
// Only PDF uploads are sent to Tika; plain text passes through and every
// other format is refused before any network call.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/textextractor"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/pkg/textx"
)

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxElapsed time.Duration
}

var _ domain.TextExtractor = (*Client)(nil)

// New constructs a Tika client with a default timeout.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9998"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxElapsed: 20 * time.Second,
	}
}

// Extract implements domain.TextExtractor.
func (c *Client) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	format, mime := textextractor.Sniff(data)
	switch format {
	case textextractor.FormatText:
		return textx.Clean(string(data)), nil
	case textextractor.FormatPDF:
	default:
		return "", fmt.Errorf("op=tika.extract: %w: %s", domain.ErrUnsupportedFormat, mime)
	}

	var result string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/plain")
		req.Header.Set("Content-Type", "application/pdf")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}
		defer func() { _ = resp.Body.Close() }()
		switch {
		case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusUnsupportedMediaType:
			return backoff.Permanent(fmt.Errorf("%w: tika status %d", domain.ErrUnsupportedFormat, resp.StatusCode))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("%w: tika status %d", domain.ErrExternalService, resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("%w: tika status %d", domain.ErrExternalService, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		result = textx.Clean(string(b))
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		slog.WarnContext(ctx, "tika extraction failed", slog.String("file_name", fileName), slog.Any("error", err))
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	return result, nil
}

// Ping checks that the Tika server answers GET /version.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return fmt.Errorf("op=tika.ping: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=tika.ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("op=tika.ping: status %d", resp.StatusCode)
	}
	return nil
}
