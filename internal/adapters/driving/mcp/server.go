package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ontomap/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	serverName      = "ontomap"
	shutdownTimeout = 5 * time.Second
)

// instructions is sent to clients on initialisation.
const instructions = `ontomap suggests ontology terms for clinical source records.
Call "suggest" with a record kind (treatment or diagnosis) and its attributes
to get ranked suggestions with relative scores from 0 to 100. Call "decide" to
apply the automatic mapping policy; set commit to store an accepted mapping.
The ontomap://frontier resources list ontology crawl entries still pending.`

// Server exposes the suggestion engine and the decision policy over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer validates the ports and registers tools and resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: serverName, Version: Version},
			&mcp.ServerOptions{
				Instructions: instructions,
				HasTools:     true,
				HasResources: ports.Ontology != nil,
			},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Serve runs the server until ctx is done. An empty addr serves JSON-RPC
// over stdio; otherwise the streamable HTTP transport listens on addr.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		logger.Debug("Serving MCP over stdio")
		return s.server.Run(ctx, &mcp.StdioTransport{})
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serveHTTP(ctx, ln)
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// serveHTTP serves on ln and shuts down when ctx is done.
func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", ln.Addr())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
