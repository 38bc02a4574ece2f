package dispatcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenCache hands out client-credentials access tokens, one token source per
// (client id, secret) pair. Tokens are refreshed by the oauth2 package when they expire.
type TokenCache struct {
	tokenURL string
	client   *http.Client

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

func NewTokenCache(tokenURL string, timeout time.Duration) *TokenCache {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &TokenCache{
		tokenURL: tokenURL,
		client:   &http.Client{Timeout: timeout},
		sources:  make(map[string]oauth2.TokenSource),
	}
}

// SplitKey splits a catalog key stored as "clientSecret:clientId".
func SplitKey(apiKey string) (clientID, clientSecret string, err error) {
	secret, id, ok := strings.Cut(strings.TrimSpace(apiKey), ":")
	if !ok || secret == "" || id == "" {
		return "", "", fmt.Errorf("api key must be clientSecret:clientId")
	}
	return id, secret, nil
}

func (c *TokenCache) source(clientID, clientSecret string) oauth2.TokenSource {
	key := clientID + "\x00" + clientSecret

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.sources[key]; ok {
		return ts
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// the source outlives the request that created it
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.client)
	ts := oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx))
	c.sources[key] = ts
	return ts
}

// Token returns a valid access token for the pair.
func (c *TokenCache) Token(clientID, clientSecret string) (string, error) {
	tok, err := c.source(clientID, clientSecret).Token()
	if err != nil {
		return "", fmt.Errorf("vendor authorize: %w", err)
	}
	return tok.AccessToken, nil
}

// Invalidate drops the cached token, e.g. after the vendor answered 401.
func (c *TokenCache) Invalidate(clientID, clientSecret string) {
	c.mu.Lock()
	delete(c.sources, clientID+"\x00"+clientSecret)
	c.mu.Unlock()
}
