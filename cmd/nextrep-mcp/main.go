// Command nextrep-mcp serves the NextRep MCP tools over stdio, reading from
// a running NextRep server.
package main

import (
	"flag"
	"log/slog"
	"os"

	nextmcp "github.com/claude/nextrep/internal/mcp"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", envOr("NEXTREP_URL", "http://localhost:8080"), "NextRep server URL")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s := nextmcp.New(nextmcp.NewHTTPClient(*serverURL), Version, log)
	log.Info("nextrep-mcp starting", "server", *serverURL, "version", Version)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
