package cachekey

import (
	"net/http"
	"strings"
	"testing"
)

func TestRequestFromKey(t *testing.T) {
	keygen := NewKeyer("fitness-app-v1")
	r, _ := http.NewRequest("GET", "http://dev.localhost/dashboard", nil)
	key := keygen.Key(r)
	req, err := keygen.RequestFromKey(key)
	if err != nil {
		t.Fatalf("%s: %s", key, err)
	}
	if url := req.URL.String(); url != "/dashboard" {
		t.Fatalf("Created request url for key %s is %s", key, url)
	}
	if req.Method != "GET" {
		t.Fatalf("Created request method for key %s is %s", key, req.Method)
	}
}

func TestNamePrefixIncludesName(t *testing.T) {
	name := "fitness-app-v1"
	keygen := NewKeyer(name)
	if !strings.Contains(keygen.NamePrefix, name) {
		t.Fatalf("NamePrefix is %s", keygen.NamePrefix)
	}
}

func TestKeyForPathMatchesRequestKey(t *testing.T) {
	keygen := NewKeyer("fitness-app-v1")
	r, _ := http.NewRequest("GET", "http://dev.localhost/static/style.css", nil)
	if keygen.Key(r) != keygen.KeyForPath("GET", "/static/style.css") {
		t.Fatalf("Path key %s does not match request key %s",
			keygen.KeyForPath("GET", "/static/style.css"), keygen.Key(r))
	}
}

func TestKeysDifferAcrossGenerations(t *testing.T) {
	v1 := NewKeyer("fitness-app-v1")
	v2 := NewKeyer("fitness-app-v2")
	if v1.KeyForPath("GET", "/") == v2.KeyForPath("GET", "/") {
		t.Fatal("Keys collide across cache names")
	}
	if _, err := v1.RequestFromKey(v2.KeyForPath("GET", "/")); err == nil {
		t.Fatal("Key from another generation was accepted")
	}
}
