// Package auth turns a declared auth type and user-supplied credentials into
// transport headers.
//
// Resolution is total: unknown auth types and malformed parameters never
// produce an error. Unknown types resolve to no headers; membership of the
// auth type in an app's auth schemas is checked by the host, not here.
package auth

import (
	"encoding/base64"
	"net/http"

	"github.com/spf13/cast"
)

type Type string

const (
	None    Type = "none"
	Basic   Type = "basic"
	Bearer  Type = "bearer"
	Headers Type = "headers"
)

const authorizationHeader = "Authorization"

// Credentials is the closed set of resolved auth variants.
type Credentials interface {
	Type() Type
	Headers() map[string]string
	sealed()
}

type NoneCredentials struct{}

type BasicCredentials struct {
	Username string
	Password string
}

type BearerCredentials struct {
	Token string
}

type HeaderEntry struct {
	Key   string
	Value string
}

type HeaderCredentials struct {
	Entries []HeaderEntry
}

// UnrecognizedCredentials carries an auth type this package has no rule for.
// It resolves to an empty header set.
type UnrecognizedCredentials struct {
	Name string
}

func (NoneCredentials) Type() Type           { return None }
func (BasicCredentials) Type() Type          { return Basic }
func (BearerCredentials) Type() Type         { return Bearer }
func (HeaderCredentials) Type() Type         { return Headers }
func (c UnrecognizedCredentials) Type() Type { return Type(c.Name) }

func (NoneCredentials) sealed()         {}
func (BasicCredentials) sealed()        {}
func (BearerCredentials) sealed()       {}
func (HeaderCredentials) sealed()       {}
func (UnrecognizedCredentials) sealed() {}

func (c NoneCredentials) Headers() map[string]string         { return headersFor(c) }
func (c BasicCredentials) Headers() map[string]string        { return headersFor(c) }
func (c BearerCredentials) Headers() map[string]string       { return headersFor(c) }
func (c HeaderCredentials) Headers() map[string]string       { return headersFor(c) }
func (c UnrecognizedCredentials) Headers() map[string]string { return headersFor(c) }

func headersFor(c Credentials) map[string]string {
	headers := make(map[string]string)
	switch v := c.(type) {
	case BasicCredentials:
		token := base64.StdEncoding.EncodeToString([]byte(v.Username + ":" + v.Password))
		headers[authorizationHeader] = "Basic " + token
	case BearerCredentials:
		headers[authorizationHeader] = "Bearer " + v.Token
	case HeaderCredentials:
		for _, entry := range v.Entries {
			if entry.Key == "" {
				continue
			}
			headers[entry.Key] = entry.Value
		}
	case NoneCredentials, UnrecognizedCredentials:
	}
	return headers
}

// Parse maps an auth type name and loosely typed parameters (as decoded from
// JSON or YAML) onto a Credentials variant. Missing fields default to "".
func Parse(authType string, params any) Credentials {
	switch Type(authType) {
	case "", None:
		return NoneCredentials{}
	case Basic:
		fields := toMap(params)
		return BasicCredentials{
			Username: stringField(fields, "username"),
			Password: stringField(fields, "password"),
		}
	case Bearer:
		return BearerCredentials{Token: stringField(toMap(params), "token")}
	case Headers:
		return HeaderCredentials{Entries: parseEntries(params)}
	default:
		return UnrecognizedCredentials{Name: authType}
	}
}

// Resolve returns the transport headers for the given auth type and parameters.
func Resolve(authType string, params any) map[string]string {
	return Parse(authType, params).Headers()
}

// Apply copies resolved headers onto an outgoing request header set.
func Apply(dst http.Header, headers map[string]string) {
	for key, value := range headers {
		dst.Set(key, value)
	}
}

func parseEntries(params any) []HeaderEntry {
	var items []any
	switch v := params.(type) {
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	case []map[string]string:
		for _, m := range v {
			items = append(items, m)
		}
	case []HeaderEntry:
		return append([]HeaderEntry(nil), v...)
	default:
		return nil
	}

	entries := make([]HeaderEntry, 0, len(items))
	for _, item := range items {
		if entry, ok := item.(HeaderEntry); ok {
			entries = append(entries, entry)
			continue
		}
		fields := toMap(item)
		if fields == nil {
			continue
		}
		entries = append(entries, HeaderEntry{
			Key:   stringField(fields, "key"),
			Value: stringField(fields, "value"),
		})
	}
	return entries
}

func toMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = val
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[cast.ToString(key)] = val
		}
		return out
	default:
		return nil
	}
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	value, ok := fields[key]
	if !ok || value == nil {
		return ""
	}
	return cast.ToString(value)
}
