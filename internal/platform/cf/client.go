// Package cf implements platform.Client against the Cloud Foundry v3 API.
package cf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// DefaultPollInterval is how often asynchronous jobs, packages and builds
// are polled.
const DefaultPollInterval = time.Second

// Config configures a Client.
type Config struct {
	APIURL       string
	DefaultOrg   string
	DefaultSpace string
	PollInterval time.Duration
}

// Client talks to one Cloud Foundry API. The HTTP client is expected to
// authenticate requests, usually through oauth2.NewClient.
type Client struct {
	api    string
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

var _ platform.Client = (*Client)(nil)

// New creates a Client.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    strings.TrimRight(cfg.APIURL, "/"),
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}
}

// Operations implements platform.Client. Empty scope fields fall back to the
// configured default target.
func (c *Client) Operations(s scope.Scope) platform.Operations {
	return &operations{c: c, scope: s.WithDefaults(c.cfg.DefaultOrg, c.cfg.DefaultSpace)}
}

func (c *Client) String() string {
	return fmt.Sprintf("cloud foundry %s", c.api)
}

// request is one API call. Body is JSON encoded unless raw is set.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	raw         io.Reader
	contentType string
}

func (c *Client) url(path string, q url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.api + path
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do performs r and decodes the response into out when out is non-nil.
// It returns the response headers so callers can follow job locations.
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	var body io.Reader
	contentType := r.contentType
	switch {
	case r.raw != nil:
		body = r.raw
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("cf api",
		zap.String("method", r.method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode >= 300 {
		return nil, errorFor(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", r.method, req.URL.Path, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q}, out)
	return err
}

// send performs a mutating call and waits for the job it starts, if any.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	h, err := c.do(ctx, request{method: method, path: path, body: body}, out)
	if err != nil {
		return err
	}
	if loc := h.Get("Location"); loc != "" && strings.Contains(loc, "/v3/jobs/") {
		return c.waitJob(ctx, loc)
	}
	return nil
}

// list fetches every page of a collection.
func list[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, included, error) {
	var (
		all []T
		inc included
	)
	next := path
	for next != "" {
		var p page[T]
		if err := c.get(ctx, next, q, &p); err != nil {
			return nil, inc, err
		}
		all = append(all, p.Resources...)
		inc.merge(p.Included)
		next = ""
		if p.Pagination.Next != nil {
			next = p.Pagination.Next.Href
			q = nil
		}
	}
	return all, inc, nil
}

// poll calls check every interval until it reports done or fails.
func (c *Client) poll(ctx context.Context, check func(context.Context) (bool, error)) error {
	t := time.NewTicker(c.cfg.PollInterval)
	defer t.Stop()
	for {
		done, err := check(ctx)
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return transportError(ctx.Err())
		case <-t.C:
		}
	}
}

func (c *Client) waitJob(ctx context.Context, location string) error {
	return c.poll(ctx, func(ctx context.Context) (bool, error) {
		var j job
		if err := c.get(ctx, location, nil, &j); err != nil {
			return false, err
		}
		switch j.State {
		case "COMPLETE":
			return true, nil
		case "FAILED":
			return false, classify(0, j.Errors, "job %s failed", j.GUID)
		default:
			return false, nil
		}
	})
}

func transportError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return &platform.Error{Kind: platform.KindUnauthorized, Message: "authentication failed: " + re.Error(), Err: err}
	}
	return &platform.Error{Kind: platform.KindTransport, Message: err.Error(), Err: err}
}

// conflictTitles are v3 error titles that describe a state conflict.
var conflictTitles = map[string]bool{
	"CF-UniquenessError":                         true,
	"CF-ServiceInstanceNameTaken":                true,
	"CF-AssociationNotEmpty":                     true,
	"CF-ServiceBindingAppServiceTaken":           true,
	"CF-AsyncServiceInstanceOperationInProgress": true,
}

func errorFor(status int, body []byte) error {
	var e struct {
		Errors []apiError `json:"errors"`
	}
	_ = json.Unmarshal(body, &e)
	return classify(status, e.Errors, "cloud foundry returned status %d", status)
}

// classify turns v3 errors into a platform.Error. fallback formats the
// message when the platform sent none.
func classify(status int, errs []apiError, fallback string, args ...any) error {
	msg := fmt.Sprintf(fallback, args...)
	var title string
	if len(errs) > 0 {
		title = errs[0].Title
		details := make([]string, 0, len(errs))
		for _, e := range errs {
			details = append(details, e.Detail)
		}
		msg = strings.Join(details, "; ")
	}

	kind := platform.KindUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = platform.KindUnauthorized
	case status == http.StatusNotFound || title == "CF-ResourceNotFound":
		kind = platform.KindNotFound
	case status == http.StatusConflict || conflictTitles[title]:
		kind = platform.KindConflict
	case status == http.StatusUnprocessableEntity:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "already") || strings.Contains(lower, "taken") || strings.Contains(lower, "must first be deleted") {
			kind = platform.KindConflict
		} else {
			kind = platform.KindInvalid
		}
	case status == http.StatusBadRequest:
		kind = platform.KindInvalid
	case status >= 500:
		kind = platform.KindTransport
	}
	return &platform.Error{Kind: kind, Message: msg}
}
