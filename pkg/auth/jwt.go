/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/models"
)

const bearerPrefix = "Bearer "

// Claims is the JWT payload accepted by TokenVerifier.
type Claims struct {
	TenantID   string   `json:"tenantId"`
	CustomerID string   `json:"customerId,omitempty"`
	Scopes     []string `json:"scopes"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier returns a verifier for tokens signed with secret. When issuer is
// set, tokens must carry a matching iss claim.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Authenticate reads the token from Authorization or X-Authorization.
func (v *TokenVerifier) Authenticate(r *http.Request) (*Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	return v.Verify(token)
}

// Verify parses token and maps its claims to a Principal.
func (v *TokenVerifier) Verify(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}

	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims.principal()
}

// Issue signs a token for p valid for ttl.
func (v *TokenVerifier) Issue(p *Principal, ttl time.Duration) (string, error) {
	if p.IsCustomerUser() && p.CustomerID == uuid.Nil {
		return "", ErrMissingCustomer
	}

	now := v.now()

	claims := &Claims{
		TenantID: p.TenantID.String(),
		Scopes:   []string{string(p.Authority)},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    v.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	if p.CustomerID != uuid.Nil {
		claims.CustomerID = p.CustomerID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (c *Claims) principal() (*Principal, error) {
	if len(c.Scopes) == 0 {
		return nil, fmt.Errorf("%w: no scopes", ErrInvalidToken)
	}

	authority := models.Authority(c.Scopes[0])
	if !authority.Valid() {
		return nil, fmt.Errorf("%w: unknown authority %q", ErrInvalidToken, c.Scopes[0])
	}

	p := &Principal{UserID: c.Subject, Authority: authority}

	if c.TenantID != "" {
		id, err := uuid.Parse(c.TenantID)
		if err != nil {
			return nil, fmt.Errorf("%w: tenantId: %w", ErrInvalidToken, err)
		}

		p.TenantID = id
	}

	if p.TenantID == uuid.Nil && authority != models.AuthoritySysAdmin {
		return nil, fmt.Errorf("%w: missing tenantId", ErrInvalidToken)
	}

	if c.CustomerID != "" {
		id, err := uuid.Parse(c.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: customerId: %w", ErrInvalidToken, err)
		}

		p.CustomerID = id
	}

	if p.IsCustomerUser() && p.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingCustomer)
	}

	return p, nil
}

func bearerToken(r *http.Request) string {
	for _, header := range []string{"Authorization", "X-Authorization"} {
		value := r.Header.Get(header)
		if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(value[len(bearerPrefix):])
		}
	}

	return ""
}
