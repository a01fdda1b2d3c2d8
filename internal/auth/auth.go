// Package auth provides authentication for the inventory service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// Role is what an authenticated caller may do with the inventory.
type Role string

const (
	// RoleReader may list and fetch items.
	RoleReader Role = "reader"
	// RoleEditor may also create, update and delete items.
	RoleEditor Role = "editor"
)

// ParseRole parses a role name. An empty name means editor.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoleEditor:
		return RoleEditor, nil
	case RoleReader:
		return RoleReader, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
	Role    Role
}

// CanWrite reports whether the caller may modify inventory items.
func (i *AuthInfo) CanWrite() bool {
	return i != nil && i.Role != RoleReader
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("read-only credentials cannot modify inventory")
)

// Options selects and configures authenticators.
type Options struct {
	// Mode is one of none, basic, apikey, multi.
	Mode string
	// BasicUsers uses the format "user1:bcrypt_hash,user2:bcrypt_hash".
	BasicUsers string
	// APIKeys uses the format "key1:name1[:role],key2:name2[:role]".
	APIKeys string
}

// New builds the authenticator for the given options. Mode none returns
// a nil Authenticator.
func New(opts Options) (Authenticator, error) {
	switch opts.Mode {
	case "none", "":
		return nil, nil
	case "basic":
		return NewBasicAuthenticator(opts.BasicUsers)
	case "apikey":
		return NewAPIKeyAuthenticator(opts.APIKeys)
	case "multi":
		return newMultiFromOptions(opts)
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", opts.Mode)
	}
}

// newMultiFromOptions tries API keys before basic auth.
func newMultiFromOptions(opts Options) (Authenticator, error) {
	var authenticators []Authenticator

	if opts.APIKeys != "" {
		ak, err := NewAPIKeyAuthenticator(opts.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("creating API key authenticator: %w", err)
		}
		authenticators = append(authenticators, ak)
	}

	if opts.BasicUsers != "" {
		ba, err := NewBasicAuthenticator(opts.BasicUsers)
		if err != nil {
			return nil, fmt.Errorf("creating basic authenticator: %w", err)
		}
		authenticators = append(authenticators, ba)
	}

	if len(authenticators) == 0 {
		return nil, errors.New("multi auth mode requires at least one authenticator")
	}

	return NewMultiAuthenticator(authenticators...), nil
}

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}
