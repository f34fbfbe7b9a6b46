// Command mcpserver is a demo host: it builds a Host, registers the
// built-in example tools and resources, and runs it over stdio or HTTP
// depending on flags.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/host"
	"github.com/richard-senior/mcp-runtime/pkg/resources"
	"github.com/richard-senior/mcp-runtime/pkg/tools"
)

func main() {
	httpMode := flag.Bool("http", false, "serve over HTTP instead of stdio")
	addr := flag.String("host", "0.0.0.0", "HTTP bind address")
	port := flag.Int("port", 8080, "HTTP bind port")
	path := flag.String("path", "/mcp", "HTTP endpoint path")
	debug := flag.Bool("debug", false, "add date/time stamps to log lines")
	auditDB := flag.String("session-audit-db", "", "optional SQLite path for session audit events")
	flag.Parse()

	h, err := host.New(host.Config{
		Name:           "mcp-runtime",
		Version:        "1.0.0",
		Instructions:   "Resource templates support only a single trailing {param} placeholder, not full RFC 6570 expressions.",
		Host:           *addr,
		Port:           *port,
		Path:           *path,
		Debug:          *debug,
		EnableSessions: true,
		AutoCleanup:    true,
		SessionAuditDB: *auditDB,
	})
	if err != nil {
		logger.Fatal("failed to create host: %v", err)
	}

	if err := tools.RegisterDemoTools(h.Tools); err != nil {
		logger.Fatal("failed to register demo tools: %v", err)
	}
	if err := resources.RegisterDemoResources(h.Resources); err != nil {
		logger.Fatal("failed to register demo resources: %v", err)
	}

	kind := host.TransportStdio
	if *httpMode {
		kind = host.TransportHTTP
	}

	defer h.Destroy()
	if err := h.Run(context.Background(), kind); err != nil {
		logger.Error("host exited with error: %v", err)
		os.Exit(1)
	}
}
