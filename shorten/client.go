package shorten

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// A Client talks to a YOURLS-compatible shortening service. It holds no
// state between requests.
//
// Requests are made without a timeout and are never retried: a stalled
// service stalls the caller until ctx is done.
type Client struct {
	api  url.URL
	auth Auth
	http *http.Client
	now  func() time.Time
	log  *zap.Logger
}

// NewClient creates a Client for cfg's API and Auth
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return o.client(cfg), nil
}

// ShortURL resolves a single link. An empty string is returned, without an
// error, when the service answered but did not provide a short link.
func (cl *Client) ShortURL(ctx context.Context, link string) (string, error) {
	body, err := cl.get(ctx, url.Values{
		"action": {"shorturl"},
		"format": {"json"},
		"url":    {link},
	})
	if err != nil {
		return "", err
	}

	var res struct {
		ShortURL string `json:"shorturl"`
	}

	err = json.Unmarshal(body, &res)
	if err != nil {
		cl.log.Debug("unusable shorturl response",
			zap.String("link", link),
			zap.Error(err))
		return "", nil
	}

	return res.ShortURL, nil
}

type bulkItem struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     struct {
		URL string `json:"url"`
	} `json:"url"`
	ShortURL string `json:"shorturl"`
}

// BulkShortURLs resolves many links in a single request, returning a map of
// link to short link. Links the service did not resolve are missing from the
// map.
//
// Items that report a status other than "success" are logged, but are still
// used if they carry both the original and the short link.
func (cl *Client) BulkShortURLs(ctx context.Context, links []string) (map[string]string, error) {
	body, err := cl.get(ctx, url.Values{
		"action": {"bulkshortener"},
		"format": {"json"},
		"urls[]": links,
	})
	if err != nil {
		return nil, err
	}

	shorts := make(map[string]string, len(links))

	var res struct {
		Data []json.RawMessage `json:"data"`
	}

	err = json.Unmarshal(body, &res)
	if err != nil {
		cl.log.Warn("unusable bulkshortener response", zap.Error(err))
		return shorts, nil
	}

	for _, raw := range res.Data {
		var item bulkItem
		if json.Unmarshal(raw, &item) != nil {
			continue
		}

		if item.Status != "success" {
			cl.log.Warn(item.Message,
				zap.String("status", item.Status),
				zap.String("link", item.URL.URL))
		}

		if item.URL.URL != "" && item.ShortURL != "" {
			shorts[item.URL.URL] = item.ShortURL
		}
	}

	return shorts, nil
}

func (cl *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	u := cl.api
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}

	// Logged URLs must not leak credentials
	redacted := u
	redacted.RawQuery = q.Encode()

	for k, vs := range cl.auth.params(cl.now()) {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{URL: redacted.String(), Err: err}
	}

	resp, err := cl.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: redacted.String(), Err: err}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: redacted.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			URL: redacted.String(),
			Err: &ResponseError{
				Code: resp.StatusCode,
				Body: string(body),
			},
		}
	}

	return body, nil
}
