package driveapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lingodocs/docstore/internal/storage"
)

// expirySkew is subtracted from a token's lifetime so a token is refreshed
// before the store starts rejecting it.
const expirySkew = 30 * time.Second

const assertionGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionClaims is the service-account assertion exchanged for an access
// token at the store's token endpoint.
type assertionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// tokenSource signs an HS256 service assertion, exchanges it for a bearer
// token and caches the result until shortly before expiry. All failures
// are classified as authentication errors: an unobtainable token is fatal
// for the subsystem, never retried as a transient failure.
type tokenSource struct {
	endpoint     string
	accountEmail string
	secret       []byte
	httpClient   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(endpoint, accountEmail, secret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		endpoint:     endpoint,
		accountEmail: accountEmail,
		secret:       []byte(secret),
		httpClient:   httpClient,
	}
}

// Token returns a valid bearer token, fetching a fresh one if the cached
// token is missing or about to expire.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expires) {
		return ts.token, nil
	}

	token, lifetime, err := ts.fetch(ctx)
	if err != nil {
		return "", storage.NewError(storage.KindAuth, "auth.token", 0, err)
	}

	ts.token = token
	ts.expires = time.Now().Add(lifetime - expirySkew)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
// Called when the store answers 401 despite a cached token.
func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.mu.Unlock()
}

func (ts *tokenSource) fetch(ctx context.Context) (string, time.Duration, error) {
	now := time.Now()
	assertion := jwt.NewWithClaims(jwt.SigningMethodHS256, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.accountEmail,
			Audience:  jwt.ClaimStrings{ts.endpoint},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		Scope: "store.readwrite",
	})

	signed, err := assertion.SignedString(ts.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", assertionGrantType)
	form.Set("assertion", signed)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint answered %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned an empty token")
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	if lifetime <= expirySkew {
		lifetime = time.Minute
	}
	return payload.AccessToken, lifetime, nil
}
