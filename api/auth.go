package api

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"tablero-api/domain"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const tokenTTL = 24 * time.Hour

// Auth validates incoming JWT tokens. Two modes: local HS256 with a shared
// secret (tokens issued by our own register/login endpoints) or an external
// identity provider via JWKS (RS256). Only local mode can issue tokens.
type Auth struct {
	secret   []byte
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	parser   *jwt.Parser
	now      func() time.Time
}

// NewAuth creates a local-mode Auth signing and validating with the secret.
func NewAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty signing secret")
	}
	return &Auth{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:    time.Now,
	}
}

// NewJWKSAuth creates an Auth validating RS256 tokens against the provider's
// key set.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		now:      time.Now,
	}
}

// IssueToken signs a token for the given user. JWKS mode cannot issue.
func (a *Auth) IssueToken(u domain.User) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("token issuing requires local auth mode")
	}
	now := a.now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// IdentityFromAuthHeader validates the bearer token and extracts the caller.
func (a *Auth) IdentityFromAuthHeader(h string) (Identity, error) {
	raw, err := bearerToken(h)
	if err != nil {
		return Identity{}, err
	}

	var token *jwt.Token
	if a.secret != nil {
		token, err = a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	} else {
		if a.jwks == nil {
			return Identity{}, errors.New("jwks not configured")
		}
		token, err = a.parser.Parse(raw, a.jwks.Keyfunc)
	}
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}
	now := a.now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Identity{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return Identity{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return Identity{}, errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, errors.New("missing sub")
	}
	id := Identity{UserID: sub}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.Role, _ = claims["role"].(string)
	return id, nil
}

func bearerToken(header string) (string, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(trimmed, prefix) {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(trimmed[len(prefix):])
	if token == "" || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
