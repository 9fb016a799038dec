// Package auth obtains and caches credentials: UAA tokens for the Cloud
// Foundry API and API keys for LLM providers.
package auth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// UAAConfig describes how to log in to a Cloud Foundry API.
type UAAConfig struct {
	APIURL            string
	ClientID          string
	ClientSecret      string
	SkipTLSValidation bool
}

// HTTPClient returns the client used for both UAA and the CF API.
func (c UAAConfig) HTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if c.SkipTLSValidation {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}
	return &http.Client{Transport: tr, Timeout: 60 * time.Second}
}

// rootInfo is the subset of GET {api}/ that names the auth servers.
type rootInfo struct {
	Links struct {
		Login *struct {
			Href string `json:"href"`
		} `json:"login"`
		UAA *struct {
			Href string `json:"href"`
		} `json:"uaa"`
	} `json:"links"`
}

// DiscoverTokenURL reads the API root document and returns the UAA token
// endpoint.
func DiscoverTokenURL(ctx context.Context, client *http.Client, apiURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiURL, "/")+"/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reaching %s: %w", apiURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api root %s returned status %d", apiURL, resp.StatusCode)
	}

	var info rootInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding api root: %w", err)
	}
	switch {
	case info.Links.UAA != nil && info.Links.UAA.Href != "":
		return strings.TrimRight(info.Links.UAA.Href, "/") + "/oauth/token", nil
	case info.Links.Login != nil && info.Links.Login.Href != "":
		return strings.TrimRight(info.Links.Login.Href, "/") + "/oauth/token", nil
	default:
		return "", fmt.Errorf("api root %s does not advertise a uaa or login link", apiURL)
	}
}

func (c UAAConfig) oauth(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// PasswordLogin performs the UAA password grant.
func PasswordLogin(ctx context.Context, cfg UAAConfig, tokenURL, username, password string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient())
	tok, err := cfg.oauth(tokenURL).PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", username, err)
	}
	return tok, nil
}

// NewTokenSource returns an auto-refreshing token source seeded with tok.
// Every new token is passed to onRefresh, if set.
func NewTokenSource(ctx context.Context, cfg UAAConfig, tokenURL string, tok *oauth2.Token, onRefresh func(*oauth2.Token)) oauth2.TokenSource {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient())
	src := cfg.oauth(tokenURL).TokenSource(ctx, tok)
	if onRefresh == nil {
		return src
	}
	return &notifyingSource{src: src, last: tok.AccessToken, onRefresh: onRefresh}
}

type notifyingSource struct {
	mu        sync.Mutex
	src       oauth2.TokenSource
	last      string
	onRefresh func(*oauth2.Token)
}

func (s *notifyingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.onRefresh(tok)
	}
	return tok, nil
}

// CFCredentialsFor converts a token into its cached form.
func CFCredentialsFor(apiURL, username, tokenURL string, tok *oauth2.Token) *CFCredentials {
	return &CFCredentials{
		APIURL:       apiURL,
		Username:     username,
		TokenURL:     tokenURL,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry.Format(time.RFC3339),
	}
}

// ErrNoCredentials is returned when neither a password nor a cached token
// is available.
var ErrNoCredentials = errors.New("no cloud foundry credentials: export CF_PASSWORD or run cfpulse auth login")

// Session logs in to apiURL and returns a refreshing token source. A
// password triggers a fresh password grant; otherwise the cached refresh
// token for apiURL is used. Tokens are written back to the credential
// store as they change.
func Session(ctx context.Context, cfg UAAConfig, username, password string) (oauth2.TokenSource, error) {
	persist := func(tokenURL string) func(*oauth2.Token) {
		return func(tok *oauth2.Token) {
			_ = SaveCF(CFCredentialsFor(cfg.APIURL, username, tokenURL, tok))
		}
	}

	if password == "" {
		cached := StoredCF(cfg.APIURL)
		if cached == nil {
			return nil, ErrNoCredentials
		}
		return NewTokenSource(ctx, cfg, cached.TokenURL, cached.Token(), persist(cached.TokenURL)), nil
	}

	tokenURL, err := DiscoverTokenURL(ctx, cfg.HTTPClient(), cfg.APIURL)
	if err != nil {
		return nil, err
	}
	tok, err := PasswordLogin(ctx, cfg, tokenURL, username, password)
	if err != nil {
		return nil, err
	}
	persist(tokenURL)(tok)
	return NewTokenSource(ctx, cfg, tokenURL, tok, persist(tokenURL)), nil
}
