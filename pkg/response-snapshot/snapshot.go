package snapshot

import (
	"bufio"
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const storedAtHeaderName = "Offline-Stored-At"

// Snapshot is a stored response together with the instant it was taken.
type Snapshot struct {
	Response *http.Response
	StoredAt time.Time
}

// ToBytes converts a response to its storable byte form.
// The bytes are the HTTP/1.1 representation of the response, with the
// stored-at instant carried in an extra header.
// The body of the passed-in response stays readable afterwards.
func ToBytes(res *http.Response, storedAt time.Time) ([]byte, error) {
	res.Header.Set(storedAtHeaderName, strconv.FormatInt(storedAt.Unix(), 10))
	defer res.Header.Del(storedAtHeaderName)

	// write response to buffer
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, err
	}
	bts := buf.Bytes()
	// res.Write drains the body, so set it back from the written bytes
	clonedRes, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(bts)), res.Request)
	if err != nil {
		return nil, err
	}
	res.Body = clonedRes.Body
	return bts, nil
}

// FromBytes converts a byte slice back to a snapshot.
// The given request is attached to the response for context.
func FromBytes(b []byte, req *http.Request) (Snapshot, error) {
	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), req)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Response: res}
	if ts, err := strconv.ParseInt(res.Header.Get(storedAtHeaderName), 10, 64); err == nil {
		snap.StoredAt = time.Unix(ts, 0)
	} else {
		log.Warn().Str("header", storedAtHeaderName).Msg("Snapshot has no stored-at stamp")
	}
	res.Header.Del(storedAtHeaderName)
	return snap, nil
}
