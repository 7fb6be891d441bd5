package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/equipment.report/internal/api"
	"github.com/banshee-data/equipment.report/internal/config"
	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/pipeline"
	"github.com/banshee-data/equipment.report/internal/timeutil"
	"github.com/banshee-data/equipment.report/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a JSON config file (see "+config.DefaultConfigPath+")")
	dbPathFlag = flag.String("db-path", "", "SQLite database path (overrides config)")
	listenFlag = flag.String("listen", "", "HTTP listen address (overrides config)")
	devMode    = flag.Bool("dev", false, "Read migrations from ./internal/db/migrations instead of the embedded copy")
	assumeYes  = flag.Bool("yes", false, "Answer yes to confirmation prompts")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: equipment [flags] [command] [args]

Commands:
  serve                      Run the HTTP API (default)
  migrate <action>           Manage the database schema (see: migrate help)
  ingest <file.csv>...       Ingest CSV files into the local database
  list                       List stored datasets, most recent first
  report [flags] <id>        Render a report for a stored dataset
  prune                      Apply the retention policy now
  upload [flags] <file.csv>  Upload a CSV to a running server
  version                    Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	db.DevMode = *devMode

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	if *listenFlag != "" {
		cfg.ListenAddr = listenFlag
	}

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &CLI{Config: cfg, Out: os.Stdout, In: os.Stdin, Yes: *assumeYes}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg)
	case "migrate":
		err = cli.Migrate(args)
	case "ingest":
		err = cli.Ingest(ctx, args)
	case "list":
		err = cli.List(ctx, args)
	case "report":
		err = cli.Report(ctx, args)
	case "prune":
		err = cli.Prune(ctx)
	case "upload":
		err = cli.Upload(ctx, args)
	case "version":
		fmt.Printf("equipment %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	mux := http.NewServeMux()
	// admin debugging routes, reachable over loopback or Tailscale only
	database.AttachAdminRoutes(mux)
	mux.Handle("/", api.NewServer(database, cfg, nil).Router())

	server := &http.Server{
		Addr:              cfg.GetListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if interval := cfg.GetPruneInterval(); interval > 0 {
		sweeper := pipeline.NewIngester(database, api.IngestOptions(cfg))
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("retention sweep every %s", interval)
			sweeper.Sweep(ctx, timeutil.RealClock{}, interval)
		}()
	}

	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("listening on %s (db %s)", server.Addr, cfg.GetDBPath())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}
