package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"card_market/internal/domain"
	"card_market/pkg/errcodes"
)

const (
	ebayTokenPath   = "/identity/v1/oauth2/token"
	ebayScope       = "https://api.ebay.com/oauth/api_scope"
	tokenExpirySkew = time.Minute
)

type ebayTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// EbayAuthenticator obtains application tokens with the client credentials grant.
type EbayAuthenticator struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewEbayAuthenticator(baseURL, clientID, clientSecret string, client *http.Client) *EbayAuthenticator {
	return &EbayAuthenticator{
		tokenURL:     strings.TrimRight(baseURL, "/") + ebayTokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
		now:          time.Now,
	}
}

// BearerToken returns the cached token, or "" once it is about to expire.
func (a *EbayAuthenticator) BearerToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.token == "" || !a.now().Before(a.expiresAt.Add(-tokenExpirySkew)) {
		return ""
	}
	return a.token
}

func (a *EbayAuthenticator) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", ebayScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.clientID, a.clientSecret)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.WrapError(err, errcodes.SourceError, "ebay_sold: token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewError(errcodes.SourceError, fmt.Sprintf("ebay_sold: token status %d", resp.StatusCode))
	}

	var token ebayTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return domain.WrapError(err, errcodes.SourceError, "ebay_sold: decode token")
	}
	if token.AccessToken == "" {
		return domain.NewError(errcodes.SourceError, "ebay_sold: empty access token")
	}

	a.mu.Lock()
	a.token = token.AccessToken
	a.expiresAt = a.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	a.mu.Unlock()

	logger(ctx).Debug("ebay application token refreshed", slog.Int("expires_in", token.ExpiresIn))

	return nil
}
