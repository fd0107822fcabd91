package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestToBytesBodyIntact(t *testing.T) {
	response := `HTTP/1.1 200 OK
Server: Test

This is the body`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	_, err = ToBytes(res, time.Now())
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if fmt.Sprintf("%s", body) != "This is the body" {
		t.Fatalf("Body: %s", body)
	}
}

func TestRoundTrip(t *testing.T) {
	response := `HTTP/1.1 200 OK
Content-Type: text/css
Content-Length: 16

body { margin:0}`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}
	storedAt := time.Unix(1700000000, 0)

	b, err := ToBytes(res, storedAt)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	snap, err := FromBytes(b, nil)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}

	if snap.Response.StatusCode != 200 {
		t.Fatalf("Status code is %d", snap.Response.StatusCode)
	}
	if ct := snap.Response.Header.Get("Content-Type"); ct != "text/css" {
		t.Fatalf("Content-Type is %s", ct)
	}
	if !snap.StoredAt.Equal(storedAt) {
		t.Fatalf("StoredAt is %v", snap.StoredAt)
	}
	if got := snap.Response.Header.Get("Offline-Stored-At"); got != "" {
		t.Fatalf("Stamp header leaked into response: %s", got)
	}
	body, err := io.ReadAll(snap.Response.Body)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if string(body) != "body { margin:0}" {
		t.Fatalf("Body: %s", body)
	}
}

func TestRoundTripKeepsErrorStatus(t *testing.T) {
	response := `HTTP/1.1 404 Not Found
Content-Length: 9

not found`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}
	b, err := ToBytes(res, time.Now())
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	snap, err := FromBytes(b, nil)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if snap.Response.StatusCode != 404 {
		t.Fatalf("Status code is %d", snap.Response.StatusCode)
	}
}
