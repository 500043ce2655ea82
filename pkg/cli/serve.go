package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/edgeopslabs/appkit/pkg/common"
	"github.com/edgeopslabs/appkit/pkg/host"
)

type toolInventory struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Transport string          `json:"transport"`
	Tools     []host.ToolInfo `json:"tools"`
}

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose configured app instances as MCP tools",
		Long: `serve registers every tool allowed by policy on an MCP server.

Transports: stdio (default), sse, or http (streamable HTTP). The network
transports also serve /healthz, /tools and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, e)
		},
	}
	flags := cmd.Flags()
	flags.String("transport", "", "transport: stdio, sse or http")
	flags.String("addr", "", "listen address for network transports")
	flags.String("base-url", "", "base URL for the sse endpoint (e.g. http://localhost:8080)")
	flags.String("base-path", "/mcp", "base path for MCP endpoints")
	for _, name := range []string{"transport", "addr"} {
		_ = e.v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

func runServe(cmd *cobra.Command, e *env) error {
	cfg := e.cfg
	if transport := e.v.GetString("transport"); transport != "" {
		cfg.Server.Transport = strings.ToLower(transport)
	}
	if addr := e.v.GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return exitError(exitUsage, "%v", err)
	}
	baseURL, _ := cmd.Flags().GetString("base-url")
	basePath, _ := cmd.Flags().GetString("base-path")

	common.PrintBanner(cmd.ErrOrStderr())
	if cfg.Server.SafeMode {
		slog.Warn("safe mode enabled (sensitive tools must be read-only)")
	}

	h, err := e.newHost()
	if err != nil {
		return err
	}
	s := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)
	tools := h.RegisterMCP(cmd.Context(), s)
	inventory := toolInventory{
		Server:    cfg.Server.Name,
		Version:   cfg.Server.Version,
		Transport: cfg.Server.Transport,
		Tools:     tools,
	}

	switch cfg.Server.Transport {
	case "sse":
		if baseURL == "" {
			baseURL = "http://localhost" + cfg.Server.Addr
		}
		sseServer := server.NewSSEServer(
			s,
			server.WithBaseURL(baseURL),
			server.WithStaticBasePath(basePath),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithUseFullURLForMessageEndpoint(true),
			server.WithKeepAlive(true),
		)
		mux := newMux(h, inventory)
		mux.Handle(basePath+"/sse", sseServer.SSEHandler())
		mux.Handle(basePath+"/message", sseServer.MessageHandler())
		slog.Info("starting sse server", "addr", cfg.Server.Addr, "baseURL", baseURL, "basePath", basePath)
		return listen(cmd.Context(), cfg.Server.Addr, mux)
	case "http":
		mux := newMux(h, inventory)
		mux.Handle(basePath, server.NewStreamableHTTPServer(s))
		slog.Info("starting streamable http server", "addr", cfg.Server.Addr, "basePath", basePath)
		return listen(cmd.Context(), cfg.Server.Addr, mux)
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), "appkit is serving MCP over stdio")
		if err := server.ServeStdio(s); err != nil {
			return exitError(exitFailure, "server error: %v", err)
		}
		return nil
	}
}

// newMux serves the operational endpoints shared by the network transports.
func newMux(h *host.Host, inventory toolInventory) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/tools", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inventory)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(h.Registry(), promhttp.HandlerOpts{}))
	return mux
}

func listen(ctx context.Context, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitFailure, "server error: %v", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
