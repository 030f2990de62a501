package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/todmy/interolog/internal/homology"
	"github.com/todmy/interolog/internal/interolog"
	"github.com/todmy/interolog/internal/storage"
	"github.com/todmy/interolog/internal/tools"
)

func main() {
	transport := flag.String("transport", "stdio", "Transport mode: stdio or http")
	port := flag.String("port", "8081", "HTTP port (only used with --transport http)")
	dataDir := flag.String("data-dir", "./data", "Directory for the SQLite database")
	taxonMode := flag.String("taxon-mode", "every", "Default taxon mode for trims: every or some")
	flag.Parse()

	mode, err := homology.ParseTaxonMode(*taxonMode)
	if err != nil {
		log.Fatalf("Invalid taxon mode: %v", err)
	}

	store, err := storage.OpenSQLite(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	svc := interolog.NewService(interolog.ServiceConfig{
		Evidence:  store,
		Links:     store,
		TaxonMode: mode,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	restored, err := svc.Restore(ctx)
	if err != nil {
		log.Fatalf("Failed to restore state: %v", err)
	}
	log.Printf("Restored %d evidence records and %d links", restored.Evidence, restored.Links)

	srv := tools.NewServer(svc)

	switch *transport {
	case "stdio":
		log.Println("Interolog MCP server starting (stdio)")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case "http":
		addr := ":" + *port
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		log.Printf("Interolog MCP server listening on %s", addr)
		if err := http.ListenAndServe(addr, handler); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	default:
		log.Fatalf("Unknown transport: %s (use stdio or http)", *transport)
	}
}
