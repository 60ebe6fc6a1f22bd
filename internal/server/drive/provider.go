// Package drive talks to the identity provider (Google OAuth 2.0) and to the
// file store (Google Drive v3) on behalf of one identity at a time.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	DefaultAPIBase     = "https://www.googleapis.com/drive/v3"
	DefaultUploadBase  = "https://www.googleapis.com/upload/drive/v3"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Scopes requested at login.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/drive.file",
}

// Endpoints groups every remote URL so tests can point them at httptest.
type Endpoints struct {
	OAuth       oauth2.Endpoint
	APIBase     string
	UploadBase  string
	UserInfoURL string
}

func GoogleEndpoints() Endpoints {
	return Endpoints{
		OAuth:       endpoints.Google,
		APIBase:     DefaultAPIBase,
		UploadBase:  DefaultUploadBase,
		UserInfoURL: DefaultUserInfoURL,
	}
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoints    Endpoints
	// HTTPClient is used for token, userinfo and Drive calls. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

type Provider struct {
	oauth      *oauth2.Config
	endpoints  Endpoints
	httpClient *http.Client
	logger     logging.Logger
}

func NewProvider(cfg ProviderConfig, logger logging.Logger) *Provider {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoints.OAuth,
			Scopes:       Scopes,
		},
		endpoints:  cfg.Endpoints,
		httpClient: hc,
		logger:     logger,
	}
}

func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is issued on every login.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for credentials. RefreshToken is
// empty when the provider did not issue one.
func (p *Provider) Exchange(ctx context.Context, code string) (*Credentials, error) {
	tok, err := p.oauth.Exchange(p.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging authorization code: %w", common.ErrUpstream, err)
	}
	return &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *Provider) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoints.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", common.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: reading body: %w", common.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newDriveError(resp.StatusCode, body)
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: userinfo: decoding: %w", common.ErrUpstream, err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: userinfo: missing id", ErrUnexpected)
	}
	return &info, nil
}

// Client returns a Drive client bound to one identity's credentials. Every
// access token the OAuth layer obtains from then on is passed to onRotate.
// The client must not outlive the request it was built for.
func (p *Provider) Client(ctx context.Context, creds Credentials, onRotate RotationFunc) *Client {
	octx := p.oauthContext(ctx)
	src := newRotatingSource(p.oauth.TokenSource(octx, initialToken(creds)), creds, onRotate)
	return &Client{
		httpClient: oauth2.NewClient(octx, src),
		apiBase:    p.endpoints.APIBase,
		uploadBase: p.endpoints.UploadBase,
		logger:     p.logger,
	}
}
