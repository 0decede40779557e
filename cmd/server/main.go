/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the recupero crediti case management server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load the fase catalog (from DB, a JSON file, or the built-in default)
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: pratiche.db)
           Use ":memory:" for an in-memory database
  -fasi    Optional path to a JSON catalog of fasi. When omitted, the
           catalog stored in the database is used, falling back to the
           built-in default on first run.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/pratiche.db"

  # Run with a custom phase catalog
  ./server -fasi="./config/fasi.json"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexromano87/recupero-crediti-sub000/api"
	"github.com/alexromano87/recupero-crediti-sub000/factory"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
	"github.com/alexromano87/recupero-crediti-sub000/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "pratiche.db", "SQLite database path")
	fasiPath := flag.String("fasi", "", "JSON catalog of fasi (optional)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load the fase catalog
	catalog, err := loadCatalog(context.Background(), store, *fasiPath)
	if err != nil {
		log.Fatalf("Failed to load fase catalog: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(store, catalog)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// loadCatalog resolves the fase catalog in priority order: explicit JSON
// file, then the catalog persisted in the database, then the built-in
// default (which is also persisted so later runs find it).
func loadCatalog(ctx context.Context, store *sqlite.Store, fasiPath string) (pratica.Catalog, error) {
	if fasiPath != "" {
		raw, err := os.ReadFile(fasiPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read fasi file: %w", err)
		}
		catalog, err := factory.ParseCatalog(string(raw))
		if err != nil {
			return nil, err
		}
		if err := store.SaveFasi(ctx, catalog.ListOrdered()); err != nil {
			return nil, err
		}
		return catalog, nil
	}

	stored, err := store.LoadFasi(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return pratica.NewStaticCatalog(stored)
	}

	catalog, err := factory.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if err := store.SaveFasi(ctx, catalog.ListOrdered()); err != nil {
		return nil, err
	}
	log.Println("Seeded default fase catalog")
	return catalog, nil
}
