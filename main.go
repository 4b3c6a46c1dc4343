package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"towerkeep/server/internal/replayarchive"
	"towerkeep/server/internal/session"
	"towerkeep/server/internal/storage"
	"towerkeep/server/internal/telemetry"
	"towerkeep/server/logging"
	"towerkeep/server/logging/sinks"
)

func buildSinks(cfg serverConfig, hub *observerHub) []logging.NamedSink {
	var named []logging.NamedSink
	for _, name := range cfg.LogSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout)})
		case "json":
			path := cfg.LogJSONPath
			if path == "" {
				path = "towerkeep.log.json"
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Printf("json sink disabled: %v", err)
				continue
			}
			named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(file, 2*time.Second)})
		default:
			log.Printf("unknown log sink %q ignored", name)
		}
	}
	// Observers ride the same dispatch path as the log sinks.
	named = append(named, logging.NamedSink{Name: "observers", Sink: hub})
	return named
}

func main() {
	cfg := configFromEnv()

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("open player store: %v", err)
	}

	hub := newObserverHub()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), buildSinks(cfg, hub))
	if err != nil {
		log.Fatalf("start log router: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := router.Close(ctx); err != nil {
			log.Printf("log router close: %v", err)
		}
	}()

	var archiver session.Archiver
	if cfg.ArchiveDir != "" {
		archive, err := replayarchive.Open(cfg.ArchiveDir, nil)
		if err != nil {
			log.Fatalf("open replay archive: %v", err)
		}
		archiver = archive
	}

	counters := telemetry.NewCounters()
	manager := session.NewManager(cfg.managerConfig(), session.Deps{
		Store:     store,
		Publisher: router,
		Counters:  counters,
		Archiver:  archiver,
	})

	server := &api{
		manager:   manager,
		auth:      headerAuthorizer{},
		counters:  counters,
		router:    router,
		hub:       hub,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	server.routes(mux)

	log.Printf("towerkeep verification server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
