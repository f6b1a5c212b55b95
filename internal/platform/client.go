package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"opsgrid.org/internal/obs"
)

var (
	ErrInvalidToken = errors.New("platform: invalid token")

	// ErrSyncConflict means a sync for the instance is already in flight.
	// Callers treat it as a successful trigger.
	ErrSyncConflict = errors.New("platform: sync already triggered")
)

// InstanceContext identifies the platform stack and organization a plugin
// request originates from. Parsed from the X-Instance-Context header.
type InstanceContext struct {
	StackID string `json:"stack_id"`
	OrgID   string `json:"org_id"`
}

// CheckedToken is the platform's answer to a token check.
type CheckedToken struct {
	StackID string
	OrgID   string
}

// Client talks to the hosting platform. Plugin tokens are either verified
// locally (the platform signs them as HS256 JWTs with a shared secret) or
// checked remotely against the platform API.
type Client struct {
	baseURL       string
	signingSecret []byte
	httpClient    *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithSigningSecret enables local JWT verification of plugin tokens.
func WithSigningSecret(secret string) Option {
	return func(cl *Client) {
		if strings.TrimSpace(secret) != "" {
			cl.signingSecret = []byte(secret)
		}
	}
}

// NewClient constructs a platform client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pluginClaims struct {
	StackID string `json:"stack_id"`
	OrgID   string `json:"org_id"`
	jwt.RegisteredClaims
}

// CheckToken validates a plugin-issued token against the instance context.
// The token must belong to the same stack the request claims to come from.
func (c *Client) CheckToken(ctx context.Context, token string, ic InstanceContext) (*CheckedToken, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrInvalidToken
	}
	if len(c.signingSecret) > 0 {
		return c.checkLocal(token, ic)
	}
	return c.checkRemote(ctx, token, ic)
}

func (c *Client) checkLocal(token string, ic InstanceContext) (*CheckedToken, error) {
	parsed, err := jwt.ParseWithClaims(token, &pluginClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.signingSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*pluginClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims.StackID == "" || claims.StackID != ic.StackID {
		return nil, ErrInvalidToken
	}
	return &CheckedToken{StackID: claims.StackID, OrgID: claims.OrgID}, nil
}

func (c *Client) checkRemote(ctx context.Context, token string, ic InstanceContext) (*CheckedToken, error) {
	if c.baseURL == "" {
		return nil, ErrInvalidToken
	}
	url := fmt.Sprintf("%s/api/instances/%s/token-check", c.baseURL, ic.StackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: token check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}
	return &CheckedToken{StackID: ic.StackID, OrgID: ic.OrgID}, nil
}

// SetupOrganization asks the platform instance at url to sync its
// organization into this backend. The call is idempotent: a sync already in
// flight answers conflict, which is safe to ignore.
func (c *Client) SetupOrganization(ctx context.Context, url, token string) error {
	url = strings.TrimRight(url, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/api/plugins/opsgrid-app/resources/plugin/sync", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)

	obs.RecordOrgSyncTrigger()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: trigger sync: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusBadRequest:
		return ErrSyncConflict
	default:
		return fmt.Errorf("platform: trigger sync: unexpected status %d", resp.StatusCode)
	}
}
