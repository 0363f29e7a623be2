package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultTimeout = 5 * time.Second

// Config describes a single external identity provider, e.g. a Firebase project:
// Issuer "https://securetoken.google.com/<project>", Audience "<project>".
type Config struct {
	Issuer      string
	Audience    string
	LookupURL   string        // account lookup endpoint (accounts:lookup shape); empty disables VerifyEmail
	AccessToken string        // bearer credential for LookupURL
	Timeout     time.Duration // bound on every provider call
	HTTPClient  *http.Client  // base transport, defaults to http.DefaultClient

	// KeySet replaces discovery and remote JWKS fetching when set.
	KeySet oidc.KeySet
	// Now overrides the clock used for token expiry checks.
	Now func() time.Time
}

// Provider implements Verifier with go-oidc for ID tokens and an OAuth2-authenticated REST call
// for account lookup.
type Provider struct {
	config       Config
	httpClient   *http.Client
	lookupClient *http.Client

	lock     sync.Mutex
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*Provider)(nil)

func NewProvider(config Config) (*Provider, error) {
	if config.Issuer == "" {
		return nil, errors.New("[identity.NewProvider] issuer is required")
	}
	if config.Audience == "" {
		return nil, errors.New("[identity.NewProvider] audience is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	lookupClient := httpClient
	if config.AccessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		lookupClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: config.AccessToken,
			TokenType:   "Bearer",
		}))
	}

	return &Provider{
		config:       config,
		httpClient:   httpClient,
		lookupClient: lookupClient,
	}, nil
}

type tokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *Provider) VerifyToken(ctx context.Context, rawIDToken string) (*Profile, error) {
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	verifier, err := p.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}

	fetch := &fetchResult{}
	idToken, err := verifier.Verify(withFetchResult(ctx, fetch), rawIDToken)
	if err != nil {
		if fetch.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, fetch.err)
		}
		log.Debug().Err(err).Msg("id token rejected")
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims tokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrInvalidToken)
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	return &Profile{
		Email:         claims.Email,
		Subject:       idToken.Subject,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		PictureURL:    claims.Picture,
	}, nil
}

// idTokenVerifier builds the verifier on first use. A failed discovery is not cached so the
// next request retries.
func (p *Provider) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.verifier != nil {
		return p.verifier, nil
	}

	oidcConfig := &oidc.Config{
		ClientID: p.config.Audience,
		Now:      p.config.Now,
	}

	keySet := p.config.KeySet
	if keySet == nil {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), p.config.Issuer)
		if err != nil {
			return nil, fmt.Errorf("%w: discovery: %v", ErrUnreachable, err)
		}
		var meta struct {
			JWKSURL string `json:"jwks_uri"`
		}
		if err := provider.Claims(&meta); err != nil || meta.JWKSURL == "" {
			return nil, fmt.Errorf("%w: discovery document has no jwks_uri", ErrUnreachable)
		}
		// the key set outlives this request, so it gets a background context
		keySet = oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), p.httpClient), meta.JWKSURL)
	}

	p.verifier = oidc.NewVerifier(p.config.Issuer, &trackingKeySet{inner: keySet}, oidcConfig)
	return p.verifier, nil
}
