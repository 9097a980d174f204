package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database/memstore"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/extract"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/fingerprint"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API server",
	Long: `Start the Photo Tool API server. The API exposes extraction and
clustering as async jobs plus endpoints for stats, persons, labeling,
and similar-face lookup.

Without DATABASE_URL the server runs on an in-memory store; everything
is lost on shutdown. Set DATABASE_URL for persistence.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// buildExtractService wires the library source and detector, or returns nil
// when no library root is configured. The server then serves labeling and
// clustering only.
func buildExtractService(cfg *config.Config, store database.FaceWriter) *extract.Service {
	if cfg.Library.Root == "" {
		fmt.Println("LIBRARY_ROOT not set, extraction endpoint disabled")
		return nil
	}

	detector := fingerprint.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	source := &extract.DirSource{
		Root:         cfg.Library.Root,
		HEICProxyDir: cfg.Library.HEICProxyDir,
		RawProxyDir:  cfg.Library.RawProxyDir,
	}
	return extract.NewService(source, detector, store)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	var store database.Store
	if cfg.Database.URL != "" {
		fmt.Println("Connecting to PostgreSQL database...")
		pgStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		fmt.Println("DATABASE_URL not set, using in-memory store (data is lost on shutdown)")
		store = memstore.New()
	}

	idSvc := identity.New(store, cfg.Clustering, cfg.Database.HNSWIndexPath)
	extractSvc := buildExtractService(cfg, store)
	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, store, idSvc, extractSvc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Tool API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
