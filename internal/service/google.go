package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crucial707/detector/internal/apperr"
)

// DefaultTokenInfoURL is Google's ID token introspection endpoint.
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleProvider verifies Google ID tokens with the tokeninfo endpoint.
type GoogleProvider struct {
	// ClientID, when set, must appear in the token audience.
	ClientID string
	Endpoint string
	Client   *http.Client
	Now      func() time.Time
}

func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{
		ClientID: clientID,
		Endpoint: DefaultTokenInfoURL,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Now:      time.Now,
	}
}

type tokenInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify rejects malformed, expired or foreign-audience tokens locally, then asks Google.
func (p *GoogleProvider) Verify(ctx context.Context, credential string) (*IdentityClaims, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if err := precheckCredential(credential, p.ClientID, now()); err != nil {
		return nil, err
	}

	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?id_token="+url.QueryEscape(credential), nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Detector/1.0")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unauthorized(fmt.Sprintf("identity provider rejected credential (%d)", resp.StatusCode))
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", err)
	}
	return &IdentityClaims{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

// precheckCredential parses the credential as a JWT without verifying its signature
// (tokeninfo does that) and checks expiry and, when clientID is set, audience.
func precheckCredential(credential, clientID string, now time.Time) error {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return apperr.Unauthorized("malformed credential")
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return apperr.Unauthorized("credential expired")
	}
	if clientID != "" && !slices.Contains([]string(claims.Audience), clientID) {
		return apperr.Unauthorized("credential issued for another client")
	}
	return nil
}
