package offlinecache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cachekey "github.com/AHADKHATTAK1/fitness-mangement121/pkg/cache-key"
	snapshot "github.com/AHADKHATTAK1/fitness-mangement121/pkg/response-snapshot"

	"golang.org/x/sync/errgroup"
)

// Install pre-populates the store with a snapshot of every configured
// asset, fetched from the origin. The whole install fails on the first
// asset that cannot be fetched and stored; there is no retry and no
// partial-success report. Snapshots written before the failure stay in
// the store.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.RLock()
	keyer := w.keyer
	assets := w.assets
	w.mu.RUnlock()
	return w.installTo(ctx, keyer, assets)
}

// Reinstall populates a fresh generation under the given cache name and
// switches the worker over to it. The previous generation is purged only
// after the new one is fully populated, so a failed reinstall leaves the
// worker serving from the old generation.
func (w *Worker) Reinstall(ctx context.Context, name string, assets []string) error {
	w.mu.RLock()
	previous := w.keyer.CacheName
	if assets == nil {
		assets = w.assets
	}
	w.mu.RUnlock()

	keyer := cachekey.NewKeyer(name)
	if err := w.installTo(ctx, keyer, assets); err != nil {
		return err
	}

	w.mu.Lock()
	w.keyer = keyer
	w.assets = assets
	w.mu.Unlock()

	if previous != name {
		w.PurgeGeneration(previous)
	}
	w.log.Info().Str("generation", name).Msgf("Installed %d assets", len(assets))
	return nil
}

func (w *Worker) installTo(ctx context.Context, keyer cachekey.Keyer, assets []string) error {
	w.log.Debug().Str("generation", keyer.CacheName).Msgf("Installing %d assets", len(assets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, path := range assets {
		path := path
		g.Go(func() error {
			return w.installAsset(ctx, keyer, path)
		})
	}
	return g.Wait()
}

// installAsset fetches one asset from the origin and stores its snapshot.
// A transport failure or a non-2xx answer both fail the asset: a snapshot
// of an error page would be a useless fallback.
func (w *Worker) installAsset(ctx context.Context, keyer cachekey.Keyer, path string) error {
	assetURL := w.originURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL.String(), nil)
	if err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	if w.hostHeader != "" {
		req.Host = w.hostHeader
	}

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("install %s: origin returned %s", path, res.Status)
	}

	storedAt := time.Now()
	b, err := snapshot.ToBytes(res, storedAt)
	if err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	key := keyer.KeyForPath(http.MethodGet, path)
	if err := w.store.Put(key, storedAt, b); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	w.log.Trace().Str("key", key).Msgf("Stored snapshot (%d bytes)", len(b))
	return nil
}
