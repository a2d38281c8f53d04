package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
)

// maxBodySize bounds how much of a remote CSV is read.
const maxBodySize = 32 << 20

// HTTPSource downloads a zone table as CSV from a URL.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a source that fetches url with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the source URL.
func (s *HTTPSource) Name() string { return s.url }

// Fetch performs one GET and parses the body. Any transport failure or
// non-200 status is a *domain.SourceUnavailableError.
func (s *HTTPSource) Fetch(ctx context.Context) (domain.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return domain.Table{}, &domain.SourceUnavailableError{Source: s.url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Table{}, &domain.SourceUnavailableError{Source: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Table{}, &domain.SourceUnavailableError{
			Source: s.url,
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	tbl, err := readTable(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.Table{}, wrapReadError(s.url, err)
	}
	s.logger.Debug("fetched zone table", "url", s.url, "records", len(tbl.Records), "duration", time.Since(start))
	return tbl, nil
}
