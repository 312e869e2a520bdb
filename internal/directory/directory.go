// Package directory wraps the Google Workspace Directory and Reports
// admin APIs behind a small interface, generalizing the teacher pack's
// GCP credential-from-env pattern (yungbote-neurobridge-backend's
// internal/platform/gcp) from ambient application-default credentials to
// gappsd's explicit 2-legged domain-wide-delegation OAuth2 flow. Client
// methods return remote errors wrapped but unclassified; Classify and
// Client.ClassifyAndReset map them onto the daemon's taxonomy, and
// handlers call them on every error they receive.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	admin "google.golang.org/api/admin/directory/v1"
	reports "google.golang.org/api/admin/reports/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/vzanotti/gappsd-go/internal/config"
)

// Client is the process-wide singleton the manager hands to handlers, per
// the design note that one OAuth2-authenticated client is shared across
// the whole daemon rather than constructed per job.
type Client struct {
	Directory *admin.Service
	Reports   *reports.Service
	Customer  string
	Domain    string

	tokens *resettableTokenSource
}

// resettableTokenSource wraps the JWT assertion flow with a cached,
// discardable oauth2.TokenSource: resetToken forces the next request to
// re-authenticate from scratch instead of replaying a token the server
// just rejected.
type resettableTokenSource struct {
	mu  sync.Mutex
	cfg *jwt.Config
	ctx context.Context
	cur oauth2.TokenSource
}

func newResettableTokenSource(ctx context.Context, cfg *jwt.Config) *resettableTokenSource {
	t := &resettableTokenSource{cfg: cfg, ctx: ctx}
	t.reset()
	return t
}

func (t *resettableTokenSource) Token() (*oauth2.Token, error) {
	t.mu.Lock()
	cur := t.cur
	t.mu.Unlock()
	return cur.Token()
}

func (t *resettableTokenSource) reset() {
	t.mu.Lock()
	t.cur = oauth2.ReuseTokenSource(nil, t.cfg.TokenSource(t.ctx))
	t.mu.Unlock()
}

// New builds the authenticated Directory/Reports clients using a JWT
// config for 2-legged domain-wide delegation (the daemon impersonates
// gapps.oauth2-user, matching the original's service-account flow).
func New(ctx context.Context, cfg config.Gapps, tokenExpiration time.Duration) (*Client, error) {
	jwtCfg := &jwt.Config{
		Email:      cfg.OAuth2Client,
		PrivateKey: []byte(cfg.OAuth2Secret),
		Scopes: []string{
			admin.AdminDirectoryUserScope,
			admin.AdminDirectoryUserAliasScope,
			reports.AdminReportsUsageReadonlyScope,
		},
		TokenURL: "https://oauth2.googleapis.com/token",
		Subject:  cfg.OAuth2User,
		Expires:  tokenExpiration,
	}
	tokens := newResettableTokenSource(ctx, jwtCfg)
	httpClient := oauth2.NewClient(ctx, tokens)

	dir, err := admin.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("directory: new directory service: %w", err)
	}
	rep, err := reports.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("directory: new reports service: %w", err)
	}
	return &Client{Directory: dir, Reports: rep, Customer: cfg.Customer, Domain: cfg.Domain, tokens: tokens}, nil
}

// Close discards the client's cached OAuth2 token. The supervisor calls
// this on clean shutdown so no live token outlives the process.
func (c *Client) Close() {
	if c.tokens != nil {
		c.tokens.reset()
	}
}

// ClassifyAndReset classifies err like Classify, and additionally
// discards the cached OAuth2 token when err is a 401: the token may have
// simply expired early or been revoked server-side, so the next request
// should re-authenticate from scratch rather than replay it.
func (c *Client) ClassifyAndReset(err error) ErrorKind {
	kind := Classify(err)
	if c == nil || c.tokens == nil {
		return kind
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		c.tokens.reset()
	}
	return kind
}

// ErrorKind mirrors internal/queue.Kind without importing it (directory
// must not depend on queue, which depends on directory for handlers).
type ErrorKind int

const (
	KindPermanent ErrorKind = iota
	KindTransient
	KindCredential
)

// Classify maps the HTTP status carried by a googleapi.Error (or a raw
// network error) onto the daemon's three-valued taxonomy:
//   - 401                     -> Transient (the caller resets the token and retries)
//   - 403                     -> Credential (the delegated identity itself is refused)
//   - 404/400/409/422         -> Permanent
//   - 429/5xx/no status (net) -> Transient
//
// A plain Classify(err) call never resets the cached token itself; use
// Client.ClassifyAndReset for the 401 path's reset-then-retry behavior.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindPermanent
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return KindTransient
		case http.StatusForbidden:
			return KindCredential
		case http.StatusNotFound, http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return KindPermanent
		case http.StatusTooManyRequests:
			return KindTransient
		default:
			if gerr.Code >= 500 {
				return KindTransient
			}
			return KindPermanent
		}
	}
	var oerr *oauth2.RetrieveError
	if errors.As(err, &oerr) {
		return KindCredential
	}
	// Unclassified (DNS, dial timeout, etc.): Transient, per the taxonomy's
	// Unknown-bucket-handled-as-Transient rule.
	return KindTransient
}

// IsNotFound reports whether err is a 404 from the remote API. Handlers
// treat a 404 on "retrieve" as "absent" rather than a permanent error,
// per the shared directory-handler behavior spec.md names.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}
