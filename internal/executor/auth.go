package executor

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/proxy"
)

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apiKey"
	AuthBasic  AuthType = "basic"
)

type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
)

// AuthConfig is the single global credential set applied to every executed
// request. It is only persisted when PersistSession is set.
type AuthConfig struct {
	Type           AuthType       `json:"type"`
	BearerToken    string         `json:"bearerToken,omitempty"`
	APIKeyName     string         `json:"apiKeyName,omitempty"`
	APIKeyValue    string         `json:"apiKeyValue,omitempty"`
	APIKeyLocation APIKeyLocation `json:"apiKeyLocation,omitempty"`
	BasicUsername  string         `json:"basicUsername,omitempty"`
	BasicPassword  string         `json:"basicPassword,omitempty"`
	PersistSession bool           `json:"persistSession,omitempty"`
}

var (
	validAuthTypes = map[AuthType]bool{
		"":         true,
		AuthNone:   true,
		AuthBearer: true,
		AuthAPIKey: true,
		AuthBasic:  true,
	}
	validAPIKeyLocations = map[APIKeyLocation]bool{
		"":             true,
		APIKeyInHeader: true,
		APIKeyInQuery:  true,
	}
)

func (a AuthConfig) Validate() error {
	if !validAuthTypes[a.Type] {
		return fmt.Errorf("invalid auth type: %s (valid: none, bearer, apiKey, basic)", a.Type)
	}
	if !validAPIKeyLocations[a.APIKeyLocation] {
		return fmt.Errorf("invalid apiKeyLocation: %s (valid: header, query)", a.APIKeyLocation)
	}
	return nil
}

// ApplyAuth adds the credentials of auth to r. Nothing the caller already
// set is overwritten: bearer and basic only fill a missing Authorization
// header, and an API key only fills a missing header or query parameter.
func ApplyAuth(r *proxy.Request, auth AuthConfig) {
	switch auth.Type {
	case AuthBearer:
		if auth.BearerToken != "" && !hasHeader(r.Headers, "Authorization") {
			setHeader(r, "Authorization", "Bearer "+auth.BearerToken)
		}
	case AuthBasic:
		if (auth.BasicUsername != "" || auth.BasicPassword != "") && !hasHeader(r.Headers, "Authorization") {
			creds := base64.StdEncoding.EncodeToString([]byte(auth.BasicUsername + ":" + auth.BasicPassword))
			setHeader(r, "Authorization", "Basic "+creds)
		}
	case AuthAPIKey:
		if auth.APIKeyName == "" || auth.APIKeyValue == "" {
			return
		}
		if auth.APIKeyLocation == APIKeyInQuery {
			if _, ok := r.QueryParams[auth.APIKeyName]; !ok {
				if r.QueryParams == nil {
					r.QueryParams = make(map[string]string)
				}
				r.QueryParams[auth.APIKeyName] = auth.APIKeyValue
			}
			return
		}
		if !hasHeader(r.Headers, auth.APIKeyName) {
			setHeader(r, auth.APIKeyName, auth.APIKeyValue)
		}
	}
}

// ApplyCookies appends the enabled custom cookies to the Cookie header,
// after any value already present.
func ApplyCookies(r *proxy.Request, custom []cookies.Custom) {
	extra := cookies.HeaderValue(custom)
	if extra == "" {
		return
	}
	_, existing := lookupHeader(r.Headers, "Cookie")
	existing = strings.TrimRight(strings.TrimSpace(existing), ";")
	if existing == "" {
		setHeader(r, "Cookie", extra)
		return
	}
	setHeader(r, "Cookie", existing+"; "+extra)
}

// hasHeader treats a blank value as absent.
func hasHeader(h map[string]string, name string) bool {
	key, v := lookupHeader(h, name)
	return key != "" && strings.TrimSpace(v) != ""
}

func lookupHeader(h map[string]string, name string) (string, string) {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return k, v
		}
	}
	return "", ""
}

// setHeader reuses the caller's spelling of name when present.
func setHeader(r *proxy.Request, name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	if key, _ := lookupHeader(r.Headers, name); key != "" {
		name = key
	}
	r.Headers[name] = value
}
