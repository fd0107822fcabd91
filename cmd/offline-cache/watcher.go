package main

import (
	"context"
	"time"

	offlinecache "github.com/AHADKHATTAK1/fitness-mangement121"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// watchConfig watches the config file and reinstalls the app shell when a
// change bumps the cache name or edits the asset list. Deployed assets
// change together with the cache name, so a name bump in the file is the
// signal to take fresh snapshots; the old generation is purged once the
// new one is fully stored.
func watchConfig(filename string, worker *offlinecache.Worker) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("Cannot watch config file")
		return
	}
	defer watcher.Close()
	if err := watcher.Add(filename); err != nil {
		log.Error().Err(err).Msg("Cannot watch config file")
		return
	}

	var debounceTimer *time.Timer
	debounceDelay := 100 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// editors replace files instead of writing in place,
			// so re-add the watch for the new inode
			watcher.Add(filename)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				reinstallFromConfig(filename, worker)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Config watch error")
		}
	}
}

func reinstallFromConfig(filename string, worker *offlinecache.Worker) {
	config, err := getConfig(filename)
	if err != nil {
		log.Error().Err(err).Msg("Cannot re-read config")
		return
	}
	if config.CacheName == worker.CacheName() {
		log.Debug().Msg("Config changed without cache name bump, keeping current generation")
		return
	}
	log.Info().Str("generation", config.CacheName).Msg("Cache name bumped, reinstalling")
	if err := worker.Reinstall(context.Background(), config.CacheName, config.Assets); err != nil {
		log.Error().Err(err).Msg("Reinstall failed, still serving previous generation")
	}
}
