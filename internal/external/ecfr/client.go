package ecfr

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/wonny/ecfr-scorecard/pkg/httputil"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Client reads eCFR admin API documents from the live API or from local copies
// ⭐ SSOT: eCFR corpus reads go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new eCFR client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
	}
}

// Fetch returns the raw bytes at location.
// http(s) URLs go through the rate-limited HTTP client; file:// URLs and bare paths are read from disk.
func (c *Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsRemote(location) {
		if c.httpClient == nil {
			return nil, fmt.Errorf("fetch %s: no http client configured", location)
		}
		body, err := c.httpClient.GetBytes(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		c.logger.WithFields(map[string]interface{}{
			"location": location,
			"bytes":    len(body),
		}).Debug("Fetched eCFR document")
		return body, nil
	}

	path, err := localPath(location)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"path":  path,
		"bytes": len(body),
	}).Debug("Read eCFR document")

	return body, nil
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func localPath(location string) (string, error) {
	if !strings.HasPrefix(location, "file://") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", location, err)
	}
	return u.Path, nil
}
