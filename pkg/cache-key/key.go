package cachekey

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	nameSeparator   = ":"
	methodSeparator = ":"
)

// Keyer builds store keys for request descriptors.
// Keys are scoped by the cache name, which acts as the version tag of the
// snapshot generation: bumping the name starts an empty generation while
// the old keys stay untouched until purged.
type Keyer struct {
	// Name of the cache generation.
	CacheName string
	// Store key prefix for this generation.
	NamePrefix string
}

func NewKeyer(cacheName string) Keyer {
	return Keyer{
		CacheName:  cacheName,
		NamePrefix: cacheName + nameSeparator,
	}
}

// Key returns the store key for a request.
// Matching is exact: method plus request URI, nothing else.
func (k Keyer) Key(r *http.Request) string {
	return k.KeyForPath(r.Method, r.URL.RequestURI())
}

// KeyForPath returns the store key for a method and path
// without needing a request instance.
func (k Keyer) KeyForPath(method, path string) string {
	return k.CacheName + nameSeparator + method + methodSeparator + path
}

// RequestFromKey generates a keying-wise equal request to the request that
// resulted in the provided key.
// It returns an error if the request cannot for some reason be deducted.
func (k Keyer) RequestFromKey(key string) (*http.Request, error) {
	if !strings.HasPrefix(key, k.NamePrefix) {
		return nil, fmt.Errorf("key and cache name do not match")
	}
	keyNoName := strings.TrimPrefix(key, k.NamePrefix)
	method, uri, found := strings.Cut(keyNoName, methodSeparator)
	if !found {
		return nil, fmt.Errorf("malformed key: %s", key)
	}
	return http.NewRequest(method, uri, nil)
}
