package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	offlinecache "github.com/AHADKHATTAK1/fitness-mangement121"
	"github.com/AHADKHATTAK1/fitness-mangement121/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var (
	// CLI flags
	configFilenameFlag string
	originFlag         string
	hostFlag           string
	portFlag           int
	dbFilenameFlag     string
	cacheNameFlag      string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on")
	flag.StringVar(&dbFilenameFlag, "db", "", "Snapshot DB file name (use 'memory' for in-memory db)")
	flag.StringVar(&cacheNameFlag, "cache-name", "", "Name of the snapshot generation")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config, err := getConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read config")
	}

	// explicit flags override file and environment
	if flag.CommandLine.Changed("origin") {
		config.Origin = originFlag
	}
	if flag.CommandLine.Changed("host") {
		config.Host = hostFlag
	}
	if flag.CommandLine.Changed("port") {
		config.Port = portFlag
	}
	if flag.CommandLine.Changed("db") {
		config.DB = dbFilenameFlag
	}
	if flag.CommandLine.Changed("cache-name") {
		config.CacheName = cacheNameFlag
	}

	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot parse origin URL")
	}

	dbFilename := config.DB
	if dbFilename == "memory" {
		dbFilename = "file::memory:?cache=shared"
	}

	worker := offlinecache.CreateWorker(offlinecache.Config{
		Store:      store.NewSQLiteStore(dbFilename),
		OriginURL:  *originURL,
		OriginHost: config.Host,
		CacheName:  config.CacheName,
		Assets:     config.Assets,
		Logger:     &log.Logger,
	})

	// the proxy is not ready to serve before the app shell is stored
	if err := worker.Install(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Install failed")
	}

	if configFilenameFlag != "" {
		go watchConfig(configFilenameFlag, worker)
	}

	r := chi.NewRouter()
	r.Get("/-/assets", func(w http.ResponseWriter, r *http.Request) {
		entries, err := worker.PrecachedEntries()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		type assetInfo struct {
			Key      string `json:"key"`
			StoredAt string `json:"storedAt"`
			Size     int    `json:"size"`
		}
		assets := make([]assetInfo, 0, len(entries))
		for _, entry := range entries {
			assets = append(assets, assetInfo{
				Key:      entry.Key,
				StoredAt: entry.StoredAt.Format(time.RFC3339),
				Size:     len(entry.Bytes),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"cacheName": worker.CacheName(),
			"assets":    assets,
		})
	})
	r.Post("/-/install", func(w http.ResponseWriter, r *http.Request) {
		if err := worker.Install(r.Context()); err != nil {
			log.Error().Err(err).Msg("Install failed")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/*", worker)

	log.Info().Msgf("Proxying port %v to %s (with hostname '%s')", config.Port, originURL.String(), config.Host)
	err = http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r)

	if err != nil {
		panic(err)
	}
}
