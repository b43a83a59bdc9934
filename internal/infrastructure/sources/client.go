package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"card_market/internal/config"
	"card_market/internal/domain"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/httpx"
	"card_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLen = 512
)

// transport is the HTTP side shared by every adapter: a bounded timeout,
// traffic logging with masking and a per-source throttle.
type transport struct {
	source   value.Source
	baseURL  string
	client   *http.Client
	throttle *Throttle
}

type authenticator interface {
	Authenticate(ctx context.Context) error
	BearerToken() string
}

func newTransport(source value.Source, cfg config.Source, auth authenticator, logFieldMaxLen int) *transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var rt http.RoundTripper = httpx.NewLoggingRoundTripper(http.DefaultTransport,
		httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
		httpx.WithLogFieldMaxLen(logFieldMaxLen),
	)
	if auth != nil {
		rt = httpx.NewAuthBearerRoundTripper(rt, auth)
	}

	return &transport{
		source:   source,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: timeout, Transport: rt},
		throttle: NewThrottle(cfg.RequestInterval),
	}
}

// getJSON issues a throttled GET and decodes a 2xx body into dest.
func (t *transport) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	endpoint := t.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return t.throttle.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return t.sourceError(err, "build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return t.sourceError(err, "request")
		}
		defer resp.Body.Close()

		if err := t.checkStatus(resp); err != nil {
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return t.sourceError(err, "decode response")
		}

		return nil
	})
}

func (t *transport) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

	if resp.StatusCode == http.StatusTooManyRequests {
		return t.sourceError(fmt.Errorf("status %d: %s", resp.StatusCode, body), "rate limited")
	}

	return t.sourceError(fmt.Errorf("status %d: %s", resp.StatusCode, body), "unexpected status")
}

func (t *transport) sourceError(err error, msg string) error {
	return domain.WrapError(err, errcodes.SourceError, t.source.String()+": "+msg)
}

// staticToken authenticates with a fixed API token.
type staticToken string

func (staticToken) Authenticate(context.Context) error {
	return nil
}

func (t staticToken) BearerToken() string {
	return string(t)
}

// rawAmount keeps a vendor price verbatim so a malformed value excludes one
// listing instead of failing the whole payload.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	*a = rawAmount(strings.Trim(string(b), `"`))
	return nil
}

func (a rawAmount) String() string {
	return string(a)
}
