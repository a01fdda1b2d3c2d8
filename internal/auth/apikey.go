package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key" //nolint:gosec // header name, not a credential

type apiKey struct {
	value string
	name  string
	role  Role
}

// APIKeyAuthenticator authenticates requests by the X-API-Key header.
// Keys may be restricted to the reader role.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator from a
// configuration string in the format "key1:name1,key2:name2:reader".
// The optional third field is the role; it defaults to editor.
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	trimmed := strings.TrimSpace(keysConfig)
	if trimmed == "" {
		return nil, fmt.Errorf("apikey auth: keys config must not be empty")
	}

	seen := make(map[string]bool)
	var keys []apiKey

	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("apikey auth: invalid entry format, expected key:name[:role]")
		}

		key := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		if key == "" || name == "" {
			return nil, fmt.Errorf("apikey auth: key and name must not be empty")
		}

		role := RoleEditor
		if len(parts) == 3 {
			parsed, err := ParseRole(parts[2])
			if err != nil {
				return nil, fmt.Errorf("apikey auth: key %s: %w", name, err)
			}
			role = parsed
		}

		if seen[key] {
			return nil, fmt.Errorf("apikey auth: duplicate key for %s", name)
		}
		seen[key] = true

		keys = append(keys, apiKey{value: key, name: name, role: role})
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("apikey auth: no valid key entries found")
	}

	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate checks the X-API-Key header against every configured key
// with constant-time comparison.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var match *apiKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(a.keys[i].value)) == 1 {
			match = &a.keys[i]
		}
	}

	if match == nil {
		return nil, ErrInvalidAPIKey
	}

	return &AuthInfo{
		Method:  AuthMethodAPIKey,
		Subject: match.name,
		Role:    match.role,
	}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
