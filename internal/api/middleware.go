/**
 * @description
 * This file contains custom middleware for the HTTP router: Clerk JWT validation
 * (RS256 against Clerk's JWKS endpoint) and the administrator gate. Session
 * validation itself is the identity provider's job; this middleware only checks
 * the token signature and claims and puts the subject id on the request context.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDContextKey is a custom type for the context key to avoid collisions.
type UserIDContextKey string

const clerkUserIDKey UserIDContextKey = "clerkUserID"

// AuthOptions configures the Clerk JWT middleware.
type AuthOptions struct {
	JWKSURL  string
	Issuer   string // optional; enforced when non-empty
	Audience string // optional; enforced when non-empty
}

// jwksCache caches fetched public keys by key id so each request does not hit
// the JWKS endpoint. Entries expire so key rotation is picked up.
type jwksCache struct {
	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
	ttl     time.Duration
}

func newJWKSCache(ttl time.Duration) *jwksCache {
	return &jwksCache{keys: make(map[string]*rsa.PublicKey), ttl: ttl}
}

// ClerkAuthMiddleware creates a middleware that validates JWT tokens from Clerk.
func ClerkAuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	cache := newJWKSCache(15 * time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				kid, ok := token.Header["kid"].(string)
				if !ok {
					return nil, fmt.Errorf("kid not found in token header")
				}
				publicKey, err := cache.publicKey(opts.JWKSURL, kid)
				if err != nil {
					return nil, fmt.Errorf("failed to get public key: %w", err)
				}
				return publicKey, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			if opts.Audience != "" {
				if aud, ok := claims["aud"].(string); !ok || aud != opts.Audience {
					http.Error(w, "Invalid audience", http.StatusUnauthorized)
					return
				}
			}
			if opts.Issuer != "" {
				if iss, ok := claims["iss"].(string); !ok || iss != opts.Issuer {
					http.Error(w, "Invalid issuer", http.StatusUnauthorized)
					return
				}
			}

			// The 'sub' claim carries the Clerk user id.
			userID, ok := claims["sub"].(string)
			if !ok || userID == "" {
				http.Error(w, "User ID not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), clerkUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// publicKey returns the RSA key for kid, refreshing the JWKS when the kid is
// unknown or the cache has expired.
func (c *jwksCache) publicKey(jwksURL, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.keys[kid]; ok && time.Since(c.fetched) < c.ttl {
		return key, nil
	}

	keys, err := fetchJWKS(jwksURL)
	if err != nil {
		// Serve a stale key rather than failing outright if we have one.
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}
	c.keys = keys
	c.fetched = time.Now()

	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %s not found", kid)
	}
	return key, nil
}

// fetchJWKS downloads and parses the JWKS document into RSA public keys by kid.
func fetchJWKS(jwksURL string) (map[string]*rsa.PublicKey, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(jwksURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			return nil, err
		}
		keys[key.Kid] = pub
	}
	return keys, nil
}

// parseRSAPublicKey parses an RSA public key from base64url modulus and exponent.
func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var exp uint64
	for _, b := range eb {
		exp = (exp << 8) | uint64(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(exp),
	}, nil
}

// GetClerkUserID retrieves the Clerk User ID from the request context.
// Handlers should use this function to get the authenticated user's ID.
func GetClerkUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(clerkUserIDKey).(string)
	return userID, ok
}

// WithClerkUserID returns a context carrying the given Clerk user id. Exposed
// for handler tests.
func WithClerkUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, clerkUserIDKey, userID)
}
