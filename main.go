package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gigwire-data/gigwire/internal/api"
	"github.com/gigwire-data/gigwire/internal/config"
	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/httputil"
	"github.com/gigwire-data/gigwire/internal/ingest"
	"github.com/gigwire-data/gigwire/internal/pipeline"
	"github.com/gigwire-data/gigwire/internal/scheduler"
)

var (
	listen = flag.String("listen", "", "Listen address (overrides GIGWIRE_LISTEN)")
	dbPath = flag.String("db", "", "Database file path (overrides GIGWIRE_DB_PATH)")
	dev    = flag.Bool("dev", false, "Run in dev mode (mounts admin debug routes)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	store, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	orch := pipeline.NewOrchestrator(store, pipeline.DefaultListingPolicy(), pipeline.RollingAggregates{})
	normalizer := &pipeline.Normalizer{
		DB:                       store,
		AllowRepublishCorrection: cfg.AllowRepublishCorrection,
	}
	scraper := ingest.NewMockScraper(time.Now().UnixNano())

	var sched *scheduler.Scheduler
	if cfg.EnableScheduler {
		sched = scheduler.New(orch, cfg.PublishInterval(), cfg.PublishBatchSize, cfg.MockIngestHour,
			func(ctx context.Context) error {
				result, err := scraper.Run(ctx, store, 10, false)
				if err != nil {
					return err
				}
				_, err = normalizer.Stage(ctx, result.BatchID)
				return err
			})
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sched != nil {
		sched.Start()
		defer sched.Stop()
		log.Printf("scheduler started: publish workflow every %s, mock ingest at hour %d",
			cfg.PublishInterval(), cfg.MockIngestHour)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes are for dev mode or access over Tailscale
		if *dev {
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach admin routes: %v", err)
			}
		}

		apiMux := api.NewServer(store, orch, normalizer, scraper, sched).ServeMux()
		mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiMux))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				httputil.NotFound(w, "not found")
				return
			}
			httputil.WriteJSONOK(w, api.Describe())
		})

		server := &http.Server{
			Addr:    cfg.Listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", cfg.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
