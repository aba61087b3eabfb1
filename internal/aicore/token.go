package aicore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ccastromar/aicore-agents/internal/metrics"
)

// OAuthTokenIssuer fetches AI Core tokens with the client-credentials grant
// of the service key. Tokens are not cached; each call hits the auth server.
type OAuthTokenIssuer struct {
	cfg  clientcredentials.Config
	http *http.Client
}

var _ TokenIssuer = (*OAuthTokenIssuer)(nil)

// NewOAuthTokenIssuer builds an issuer for the given auth url. The token
// endpoint is authURL + "/oauth/token" unless authURL already ends with it.
func NewOAuthTokenIssuer(authURL, clientID, clientSecret string, timeout time.Duration) *OAuthTokenIssuer {
	tokenURL := strings.TrimRight(authURL, "/")
	if !strings.HasSuffix(tokenURL, "/oauth/token") {
		tokenURL += "/oauth/token"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuthTokenIssuer{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		http: &http.Client{Timeout: timeout},
	}
}

// Token returns "Bearer <access token>". The resource group does not scope
// the credential itself; it is accepted to satisfy TokenIssuer.
func (i *OAuthTokenIssuer) Token(ctx context.Context, resourceGroup string) (string, error) {
	if i.cfg.ClientID == "" || i.cfg.ClientSecret == "" {
		metrics.TokenRequests.Inc(map[string]string{"outcome": "error"})
		return "", fmt.Errorf("ai core client id and secret must be set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.http)

	tok, err := i.cfg.Token(ctx)
	if err != nil {
		metrics.TokenRequests.Inc(map[string]string{"outcome": "error"})
		return "", fmt.Errorf("fetch ai core token: %w", err)
	}
	metrics.TokenRequests.Inc(map[string]string{"outcome": "ok"})
	return bearerPrefix + tok.AccessToken, nil
}
