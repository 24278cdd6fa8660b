package stylegl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrUnauthorized means the style API rejected the access token.
var ErrUnauthorized = errors.New("stylegl: access token rejected")

// DefaultAPIBase is the public style API.
const DefaultAPIBase = "https://api.mapbox.com"

// StyleFetcher loads a base style document.
type StyleFetcher interface {
	FetchStyle(ctx context.Context, styleURL, accessToken string) (*Document, error)
}

// HTTPFetcher fetches base styles over HTTP.
type HTTPFetcher struct {
	client  *fasthttp.Client
	apiBase string
	timeout time.Duration
}

// NewHTTPFetcher creates a fetcher resolving mapbox:// URLs against apiBase.
func NewHTTPFetcher(apiBase string, timeout time.Duration) *HTTPFetcher {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client: &fasthttp.Client{
			Name:                "geoscene",
			MaxIdleConnDuration: time.Minute,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
		apiBase: strings.TrimRight(apiBase, "/"),
		timeout: timeout,
	}
}

// ResolveStyleURL maps mapbox://styles/{owner}/{id} to the style API. Other
// URLs are returned unchanged. The token is appended as a query parameter.
func ResolveStyleURL(apiBase, styleURL, accessToken string) (string, error) {
	u := styleURL
	if rest, ok := strings.CutPrefix(styleURL, "mapbox://styles/"); ok {
		owner, id, found := strings.Cut(rest, "/")
		if !found || owner == "" || id == "" {
			return "", fmt.Errorf("malformed style url %q", styleURL)
		}
		u = strings.TrimRight(apiBase, "/") + "/styles/v1/" + owner + "/" + id
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("parse style url: %w", err)
	}
	if accessToken != "" {
		q := parsed.Query()
		q.Set("access_token", accessToken)
		parsed.RawQuery = q.Encode()
	}
	return parsed.String(), nil
}

// FetchStyle downloads and decodes the style document.
func (f *HTTPFetcher) FetchStyle(ctx context.Context, styleURL, accessToken string) (*Document, error) {
	u, err := ResolveStyleURL(f.apiBase, styleURL, accessToken)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	deadline := time.Now().Add(f.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		// The URL carries the token, so only the style reference is reported.
		return nil, fmt.Errorf("fetch style %s: %w", styleURL, err)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return nil, fmt.Errorf("fetch style %s: %w (status %d)", styleURL, ErrUnauthorized, status)
	case status != fasthttp.StatusOK:
		return nil, fmt.Errorf("fetch style %s: unexpected status %d", styleURL, status)
	}

	var doc Document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode style %s: %w", styleURL, err)
	}
	if doc.Version != 8 {
		return nil, fmt.Errorf("style %s: unsupported version %d", styleURL, doc.Version)
	}
	if doc.Sources == nil {
		doc.Sources = map[string]Source{}
	}
	return &doc, nil
}
