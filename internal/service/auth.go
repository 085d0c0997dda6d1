package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/detector/internal/apperr"
	"github.com/crucial707/detector/internal/models"
)

// bcryptInputLimit is the number of input bytes bcrypt actually hashes.
const bcryptInputLimit = 72

const (
	// DefaultResolveCacheTTL bounds how long a resolved cookie skips the bcrypt scan.
	DefaultResolveCacheTTL = time.Minute
	resolveCacheSize       = 1024
)

// IdentityClaims is what the identity provider vouches for.
type IdentityClaims struct {
	Email   string
	Name    string
	Picture string
}

// IdentityProvider verifies a third-party login credential.
type IdentityProvider interface {
	Verify(ctx context.Context, credential string) (*IdentityClaims, error)
}

// AuthDeps wires an AuthService.
type AuthDeps struct {
	Users    UserStore
	Provider IdentityProvider
	// AllowedDomains restricts logins to emails ending in one of these suffixes. Empty allows everyone.
	AllowedDomains []string
	// Cost is the bcrypt cost for new tokens; bcrypt.DefaultCost when zero.
	Cost int
	// ResolveCacheTTL keeps resolved cookies in memory. Zero uses DefaultResolveCacheTTL,
	// a negative value disables the cache.
	ResolveCacheTTL time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// AuthService issues and resolves access tokens.
type AuthService struct {
	users   UserStore
	idp     IdentityProvider
	domains []string
	cost    int
	logger  *zap.Logger
	now     func() time.Time

	// resolved maps cookie values to users. nil when caching is disabled.
	resolved *expirable.LRU[string, models.User]
}

func NewAuthService(d AuthDeps) *AuthService {
	s := &AuthService{
		users:   d.Users,
		idp:     d.Provider,
		domains: d.AllowedDomains,
		cost:    d.Cost,
		logger:  d.Logger,
		now:     d.Now,
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	ttl := d.ResolveCacheTTL
	if ttl == 0 {
		ttl = DefaultResolveCacheTTL
	}
	if ttl > 0 {
		s.resolved = expirable.NewLRU[string, models.User](resolveCacheSize, nil, ttl)
	}
	return s
}

// tokenSecret is the user's canonical token content as bcrypt sees it.
func tokenSecret(u models.User) []byte {
	b := []byte(u.TokenContent())
	if len(b) > bcryptInputLimit {
		b = b[:bcryptInputLimit]
	}
	return b
}

// IssueToken returns the cookie value for u: base64 of a bcrypt hash of its token content.
func (s *AuthService) IssueToken(u models.User) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(tokenSecret(u), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

// Resolve maps a cookie value to the user whose token content it was derived from.
// A miss costs one bcrypt comparison per user; hits are served from the cache.
func (s *AuthService) Resolve(ctx context.Context, cookieValue string) (*models.User, error) {
	if cookieValue == "" {
		return nil, apperr.Unauthorized("missing access token")
	}
	if s.resolved != nil {
		if u, ok := s.resolved.Get(cookieValue); ok {
			return &u, nil
		}
	}
	hash, err := base64.StdEncoding.DecodeString(cookieValue)
	if err != nil {
		return nil, apperr.Unauthorized("malformed access token")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list users")
	}
	for i := range users {
		if bcrypt.CompareHashAndPassword(hash, tokenSecret(users[i])) == nil {
			if s.resolved != nil {
				s.resolved.Add(cookieValue, users[i])
			}
			return &users[i], nil
		}
	}
	return nil, apperr.Unauthorized("invalid access token")
}

// Login verifies an identity-provider credential, applies the domain restriction,
// upserts the user and returns it with a fresh cookie value.
func (s *AuthService) Login(ctx context.Context, credential string) (*models.User, string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, "", apperr.Unauthorized("missing credentials")
	}

	claims, err := s.idp.Verify(ctx, credential)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, "", err
		}
		s.logger.Warn("credential verification failed", zap.Error(err))
		return nil, "", apperr.Unauthorized("credential verification failed")
	}
	if claims == nil || claims.Email == "" || claims.Name == "" || claims.Picture == "" {
		return nil, "", apperr.Unauthorized("incomplete identity")
	}
	if !s.domainAllowed(claims.Email) {
		s.logger.Info("login rejected by domain restriction", zap.String("email", claims.Email))
		return nil, "", apperr.Unauthorized("email domain not allowed")
	}

	user, err := s.users.Upsert(ctx, strings.ToLower(claims.Email), claims.Name, claims.Picture, s.now())
	if err != nil {
		return nil, "", apperr.Internal(err, "save user")
	}

	token, err := s.IssueToken(*user)
	if err != nil {
		return nil, "", apperr.Internal(err, "issue token")
	}
	return user, token, nil
}

func (s *AuthService) domainAllowed(email string) bool {
	if len(s.domains) == 0 {
		return true
	}
	for _, d := range s.domains {
		if d != "" && strings.HasSuffix(email, d) {
			return true
		}
	}
	return false
}
