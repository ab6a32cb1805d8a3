package storage_service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"fashion-studio/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imroc/req"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

const defaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// FirebaseVerifier checks Firebase ID tokens: RS256 signed by a key from the
// secure-token JWKS, issued by securetoken.google.com/<project> for <project>.
type FirebaseVerifier struct {
	projectID string
	issuer    string
	jwksURL   string
	ttl       time.Duration
	leeway    time.Duration
	// minRefresh is the least time between two JWKS fetches, whatever kid
	// the tokens name.
	minRefresh time.Duration
	now        func() time.Time

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
	fetches     singleflight.Group
}

func NewFirebaseVerifier(projectID, jwksURL string) (*FirebaseVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}
	if jwksURL == "" {
		jwksURL = defaultFirebaseJWKSURL
	}
	return &FirebaseVerifier{
		projectID: projectID,
		issuer:    "https://securetoken.google.com/" + projectID,
		jwksURL:   jwksURL,
		ttl:        time.Hour,
		leeway:     30 * time.Second,
		minRefresh: time.Minute,
		now:        time.Now,
	}, nil
}

type firebaseClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrAuthFailure)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	claims := &firebaseClaims{}
	tok, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrAuthFailure)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrAuthFailure)
	}

	return &model.Identity{
		UID:     claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// key returns the signing key for kid, refreshing the JWKS when the cache is
// stale or the kid is unknown (keys rotate). Refreshes are at least
// minRefresh apart and concurrent ones share a single fetch.
func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := v.now()
	v.mu.RLock()
	k, ok := v.keys[kid]
	fresh := now.Sub(v.fetchedAt) < v.ttl
	recent := !v.lastAttempt.IsZero() && now.Sub(v.lastAttempt) < v.minRefresh
	v.mu.RUnlock()
	if ok && (fresh || recent) {
		return k, nil
	}
	if recent {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}

	_, err, _ := v.fetches.Do("jwks", func() (any, error) {
		return nil, v.refresh(ctx)
	})
	if err != nil {
		if ok {
			return k, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.lastAttempt = v.now()
	v.mu.Unlock()

	resp, err := req.Get(v.jwksURL, ctx)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	if code := resp.Response().StatusCode; code < 200 || code >= 300 {
		return fmt.Errorf("fetch jwks: status %d", code)
	}
	body, err := resp.ToBytes()
	if err != nil {
		return fmt.Errorf("read jwks: %w", err)
	}
	keys, err := parseJWKS(body)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.now()
	v.mu.Unlock()
	return nil
}

func parseJWKS(body []byte) (map[string]*rsa.PublicKey, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("jwks is not valid json")
	}
	keys := make(map[string]*rsa.PublicKey)
	gjson.GetBytes(body, "keys").ForEach(func(_, jwk gjson.Result) bool {
		if jwk.Get("kty").String() != "RSA" {
			return true
		}
		kid := jwk.Get("kid").String()
		pub, err := rsaFromModExp(jwk.Get("n").String(), jwk.Get("e").String())
		if kid == "" || err != nil {
			return true
		}
		keys[kid] = pub
		return true
	})
	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks contains no usable RSA keys")
	}
	return keys, nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())}, nil
}

// StaticVerifier maps every non-empty token to one fixed identity.
type StaticVerifier struct {
	identity model.Identity
}

func NewStaticVerifier(identity model.Identity) *StaticVerifier {
	return &StaticVerifier{identity: identity}
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrAuthFailure)
	}
	id := v.identity
	return &id, nil
}
