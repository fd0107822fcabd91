package offlinecache

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"

	cachekey "github.com/AHADKHATTAK1/fitness-mangement121/pkg/cache-key"
	snapshot "github.com/AHADKHATTAK1/fitness-mangement121/pkg/response-snapshot"
	"github.com/AHADKHATTAK1/fitness-mangement121/store"

	"github.com/rs/zerolog"
)

type Config struct {
	// Storage for response snapshots.
	Store store.Store
	// URL of the origin server.
	// Origins with paths are not supported.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Name of the active cache generation. All snapshot keys are
	// scoped by this name; bumping it starts a fresh generation.
	CacheName string
	// Paths to pre-populate into the store on Install.
	Assets []string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Optional function for mutating the incoming request.
	RequestModifier func(*http.Request)
	// Maximum number of concurrent asset fetches during Install.
	// Zero means a small default.
	InstallConcurrency int
}

// Worker fronts an origin server with an offline fallback:
// requests are always tried against the live origin first, and a stored
// snapshot is substituted only when the network attempt itself fails.
// HTTP error responses from a reachable origin pass through untouched.
type Worker struct {
	store         store.Store
	log           zerolog.Logger
	originURL     url.URL
	hostHeader    string
	client        *http.Client
	reverseproxy  httputil.ReverseProxy
	modifyRequest func(*http.Request)
	concurrency   int

	// mu guards keyer and assets, which are swapped on reinstall.
	mu     sync.RWMutex
	keyer  cachekey.Keyer
	assets []string
}

// CreateWorker initializes the offline cache instance
// and sets up the needed variables
func CreateWorker(config Config) *Worker {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	// create a child logger and add defaults
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Str("cache", config.CacheName).
		Logger()

	w := &Worker{
		store:         config.Store,
		keyer:         cachekey.NewKeyer(config.CacheName),
		log:           logger,
		originURL:     config.OriginURL,
		assets:        config.Assets,
		modifyRequest: config.RequestModifier,
		concurrency:   config.InstallConcurrency,
	}
	if w.concurrency <= 0 {
		w.concurrency = 4
	}

	host := config.OriginURL.Host
	hostHeader := host
	transport := http.DefaultTransport
	if config.OriginHost != "" {
		hostHeader = config.OriginHost
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: config.OriginHost,
			},
		}
	}
	w.hostHeader = hostHeader
	w.client = &http.Client{Transport: transport}

	w.reverseproxy = httputil.ReverseProxy{
		Director:       createDirector(config.OriginURL.Scheme, host, hostHeader),
		Transport:      transport,
		ModifyResponse: w.logLiveResponse,
		ErrorHandler:   w.fallback,
	}

	return w
}

// ServeHTTP implements the http.Handler interface.
// The live origin is always tried first; the error handler on the
// reverse proxy takes over when the transport rejects the attempt.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.modifyRequest != nil {
		w.modifyRequest(r)
	}
	w.reverseproxy.ServeHTTP(rw, r)
}

// fallback handles a failed origin round trip.
// Only transport-level failures end up here; an origin that answers with
// 4xx or 5xx is a successful round trip and never reaches this path.
func (w *Worker) fallback(rw http.ResponseWriter, r *http.Request, reqErr error) {
	w.mu.RLock()
	keyer := w.keyer
	w.mu.RUnlock()

	key := keyer.Key(r)
	w.log.Debug().Err(reqErr).Str("key", key).Msg("Origin unreachable, trying stored snapshot")

	b, ok, err := w.store.Get(key)
	if err != nil || !ok {
		if err != nil {
			w.log.Error().Err(err).Str("key", key).Msg("Could not retrieve snapshot")
		}
		cs := CacheStatus{}
		cs.Forward(FwdReasonMiss)
		rw.Header().Set("Cache-Status", cs.String())
		rw.WriteHeader(http.StatusBadGateway)
		w.logRequest(r, http.StatusBadGateway, cs)
		return
	}

	snap, err := snapshot.FromBytes(b, r)
	if err != nil {
		w.log.Error().Err(err).Str("key", key).Msg("Could not decode snapshot")
		rw.WriteHeader(http.StatusBadGateway)
		return
	}
	w.sendSnapshot(rw, r, snap)
}

func (w *Worker) sendSnapshot(rw http.ResponseWriter, r *http.Request, snap snapshot.Snapshot) {
	res := snap.Response
	if res.Body != nil {
		defer res.Body.Close()
	}
	cs := CacheStatus{}
	cs.Hit()
	cs.Detail("fallback")
	copyHeader(rw.Header(), res.Header)
	rw.Header().Set("Cache-Status", cs.String())
	rw.WriteHeader(res.StatusCode)
	bytesWritten, err := io.Copy(rw, res.Body)
	if err != nil {
		w.log.Error().Err(err).Msg("Could not write snapshot body to client")
	}
	w.logRequest(r, res.StatusCode, cs)
	w.log.Trace().Msgf("Wrote body (%d bytes)", bytesWritten)
}

// logLiveResponse logs origin responses passing through the proxy.
// The response itself is not touched: no snapshot is taken and no
// annotation is added, so live answers reach the client unmodified.
func (w *Worker) logLiveResponse(res *http.Response) error {
	cs := CacheStatus{}
	cs.Forward(FwdReasonLive)
	w.logRequest(res.Request, res.StatusCode, cs)
	return nil
}

func createDirector(scheme, host, hostHeader string) func(req *http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = scheme
		req.URL.Host = host
		if hostHeader != "" {
			req.Host = hostHeader
		}
	}
}

// CacheName returns the name of the active snapshot generation.
func (w *Worker) CacheName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keyer.CacheName
}

// PrecachedKeys lists the keys stored under the active generation.
func (w *Worker) PrecachedKeys() []string {
	w.mu.RLock()
	prefix := w.keyer.NamePrefix
	w.mu.RUnlock()
	keys := make([]string, 0)
	w.store.AllKeys(prefix, func(key string) {
		keys = append(keys, key)
	})
	return keys
}

// PrecachedEntries returns the snapshots of the active generation,
// with their stored-at stamps.
func (w *Worker) PrecachedEntries() ([]store.Entry, error) {
	w.mu.RLock()
	prefix := w.keyer.NamePrefix
	w.mu.RUnlock()
	return w.store.Entries(prefix)
}

// PurgeGeneration removes every snapshot stored under the given cache name.
func (w *Worker) PurgeGeneration(name string) {
	prefix := cachekey.NewKeyer(name).NamePrefix
	keys := make([]string, 0)
	w.store.AllKeys(prefix, func(key string) {
		keys = append(keys, key)
	})
	for _, key := range keys {
		w.store.Purge(key)
	}
	w.log.Debug().Str("generation", name).Msgf("Purged %d snapshots", len(keys))
}

func (w *Worker) logRequest(r *http.Request, status int, cs CacheStatus) {
	isHit := 0
	if cs.IsHit() {
		isHit = 1
	}
	w.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("sourceIp", getRequestSourceIp(r)).
		Int("status", status).
		Str("cacheStatus", cs.String()).
		Int("hit", isHit).
		Msg("Sending response to client")
}

func getRequestSourceIp(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	// if not found, return
	if portSepIdx < 0 {
		return ipAndPort
	}
	ip := ipAndPort[:portSepIdx]
	return ip
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// this is a workaround to remove default headers sent by an upstream proxy
		// some servers do not like the presence of these headers in the downstream request
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}
