// Package server implements the arxiv-mcp server: MCP tools for locating,
// downloading, and extracting text from papers hosted on arXiv.org.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alexshin/httpcache"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serviceName    = "arxiv-mcp"
	serviceVersion = "1.0.0"

	// userAgent identifies this client on every outbound arXiv request.
	userAgent = "arxiv-app/1.0"

	// requestTimeout bounds every outbound call. There is no retry: a single
	// timeout or failure terminates that call's contribution.
	requestTimeout = 30 * time.Second

	defaultAPIBaseURL  = "http://export.arxiv.org/api/query"
	defaultPDFBaseURL  = "https://arxiv.org/pdf"
	defaultDownloadDir = "downloads"
)

// Config holds server configuration options. Base URLs are configurable so
// tests can point the server at local fixtures; empty fields fall back to
// the public arXiv endpoints.
type Config struct {
	DebugMode   bool
	DownloadDir string
	APIBaseURL  string
	PDFBaseURL  string
}

// ArxivServer exposes arXiv article retrieval tools through the MCP protocol.
type ArxivServer struct {
	server *server.MCPServer
	client *http.Client
	logger *slog.Logger
	config Config
}

// LRUTTLCache implements httpcache.Cache using hashicorp's LRU with TTL.
type LRUTTLCache struct {
	cache *expirable.LRU[string, []byte]
}

// NewLRUTTLCache creates a new LRU cache with TTL expiration.
func NewLRUTTLCache(size int, ttl time.Duration) *LRUTTLCache {
	return &LRUTTLCache{
		cache: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Get retrieves a cached response if it exists and hasn't expired.
func (c *LRUTTLCache) Get(key string) ([]byte, bool) {
	return c.cache.Get(key)
}

// Set stores a response in the cache with TTL expiration.
func (c *LRUTTLCache) Set(key string, data []byte) {
	c.cache.Add(key, data)
}

// Delete removes an entry from the cache.
func (c *LRUTTLCache) Delete(key string) {
	c.cache.Remove(key)
}

// NewArxivServer creates a new instance of ArxivServer with default configuration.
func NewArxivServer() *ArxivServer {
	return NewArxivServerWithConfig(Config{})
}

// NewArxivServerWithConfig creates a new instance of ArxivServer with custom configuration.
func NewArxivServerWithConfig(config Config) *ArxivServer {
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBaseURL
	}
	if config.PDFBaseURL == "" {
		config.PDFBaseURL = defaultPDFBaseURL
	}
	if config.DownloadDir == "" {
		config.DownloadDir = defaultDownloadDir
	}

	baseTransport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	// Wrap with an in-process HTTP cache. arXiv asks automated clients to be
	// polite; repeated resolutions of the same title within a process are
	// served from the cache instead of hitting the API again. Nothing
	// persists beyond the process lifetime.
	cache := NewLRUTTLCache(256, 60*time.Minute)
	cachedTransport := httpcache.NewConfigurableTransport(cache, &httpcache.CacheConfig{
		CacheKeyFn: func(req *http.Request) string {
			return req.URL.String()
		},
		// The arXiv API sends no-cache headers; cache regardless.
		AuthorizeCacheFn: func(_ *http.Request, _ *http.Client) bool {
			return true
		},
	})
	cachedTransport.Transport = baseTransport

	client := &http.Client{
		Timeout:   requestTimeout,
		Transport: cachedTransport,
	}

	logLevel := slog.LevelInfo
	if config.DebugMode {
		logLevel = slog.LevelDebug
	}

	// Logs go to stderr so stdio mode keeps stdout clean for MCP framing.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	}))
	logger.Info("arxiv-mcp server starting up",
		slog.Bool("debugMode", config.DebugMode),
		slog.String("logLevel", logLevel.String()),
		slog.String("apiBaseURL", config.APIBaseURL),
		slog.String("pdfBaseURL", config.PDFBaseURL),
		slog.String("downloadDir", config.DownloadDir))

	s := &ArxivServer{
		client: client,
		logger: logger,
		config: config,
	}

	mcpServer := server.NewMCPServer(
		serviceName,
		serviceVersion,
		server.WithLogging(),
	)

	s.server = mcpServer
	s.registerTools()

	return s
}

// RunStdio starts the server in stdio mode for MCP client communication.
func (s *ArxivServer) RunStdio() error {
	s.logger.Debug("Starting server in stdio mode")
	return server.ServeStdio(s.server)
}

// RunSSE starts the server in SSE mode with real-time streaming capabilities.
func (s *ArxivServer) RunSSE(addr string) error {
	s.logger.Info("Starting server in SSE mode", slog.String("address", addr))

	sseServer := server.NewSSEServer(s.server,
		server.WithSSEEndpoint("/mcp"),
		server.WithMessageEndpoint("/mcp/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(10*time.Second))

	mux := s.newHealthMux()

	mux.Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("MCP request received",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("userAgent", r.Header.Get("User-Agent")))
		sseServer.ServeHTTP(w, r)
	}))
	mux.Handle("/mcp/message", sseServer.MessageHandler())

	return s.serveMux(addr, mux)
}

// RunHTTP starts the server in stateless HTTP mode for production deployment.
func (s *ArxivServer) RunHTTP(addr string) error {
	s.logger.Info("Starting server in HTTP mode", slog.String("address", addr))

	httpServer := server.NewStreamableHTTPServer(s.server,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithHeartbeatInterval(30*time.Second))

	mux := s.newHealthMux()

	mux.Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("MCP HTTP request received",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("contentType", r.Header.Get("Content-Type")))
		httpServer.ServeHTTP(w, r)
	}))

	return s.serveMux(addr, mux)
}

// newHealthMux builds the common health-check endpoints shared by the SSE
// and HTTP serve modes.
func (s *ArxivServer) newHealthMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Health check request received", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprintf(w, `{"status":"healthy","service":%q,"version":%q}`, serviceName, serviceVersion); err != nil {
			s.logger.Warn("Failed to write health check response", slog.Any("error", err))
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Root endpoint request", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		rootResponse := map[string]interface{}{
			"service": serviceName,
			"version": serviceVersion,
			"status":  "healthy",
			"mcp":     "/mcp",
		}
		if err := json.NewEncoder(w).Encode(rootResponse); err != nil {
			s.logger.Warn("Failed to encode root response", slog.Any("error", err))
		}
	})

	mux.HandleFunc("/mcp/health", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("MCP health check request received", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		healthResponse := map[string]interface{}{
			"jsonrpc": "2.0",
			"result": map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"capabilities": map[string]interface{}{
					"logging": map[string]interface{}{},
					"tools": map[string]interface{}{
						"listChanged": true,
					},
				},
				"serverInfo": map[string]interface{}{
					"name":    serviceName,
					"version": serviceVersion,
				},
			},
		}
		if err := json.NewEncoder(w).Encode(healthResponse); err != nil {
			s.logger.Warn("Failed to encode health response", slog.Any("error", err))
		}
	})

	return mux
}

// serveMux binds the listener and serves the mux, logging the actual address
// (important when a random port was requested).
func (s *ArxivServer) serveMux(addr string, mux *http.ServeMux) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if strings.Contains(err.Error(), "address already in use") {
			s.logger.Error("Port already in use",
				slog.String("address", addr),
				slog.String("suggestion", "Try a different port with -addr :8081 or kill existing processes"))
		}
		return fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()
	_, port, _ := net.SplitHostPort(actualAddr)
	s.logger.Info("HTTP server will be available with endpoints",
		slog.String("actualAddress", actualAddr),
		slog.String("health", "http://localhost:"+port+"/health"),
		slog.String("mcp", "http://localhost:"+port+"/mcp"))

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	return httpServer.Serve(listener)
}

func (s *ArxivServer) registerTools() {
	s.registerArxivTools()
}

// makeRequest issues a single GET against endpoint with the fixed identifying
// client header and the given accept type, and returns the raw response body.
// Exactly one attempt is made; a timeout or failure is terminal for the
// invocation. Status codes are distinguished in the returned error so logs
// stay diagnosable even where the tool surface reports a generic message.
func (s *ArxivServer) makeRequest(ctx context.Context, endpoint string, params map[string]string, accept string) ([]byte, error) {
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		s.logger.Error("Invalid URL parsing failed",
			slog.String("endpoint", endpoint),
			slog.Any("error", err))
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if params != nil {
		q := reqURL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		reqURL.RawQuery = q.Encode()
	}

	finalURL := reqURL.String()
	s.logger.Info("Starting API request",
		slog.String("url", finalURL),
		slog.String("accept", accept))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		s.logger.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("HTTP request failed",
			slog.String("url", finalURL),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", slog.Any("error", err))
		}
	}()

	cacheStatus := "MISS"
	if resp.Header.Get("X-From-Cache") == "1" {
		cacheStatus = "HIT"
	}
	s.logger.Info("HTTP request completed",
		slog.String("url", finalURL),
		slog.Duration("duration", duration),
		slog.Int("status", resp.StatusCode),
		slog.String("cacheStatus", cacheStatus))

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("HTTP request returned non-200 status",
			slog.Int("status", resp.StatusCode),
			slog.String("statusText", resp.Status),
			slog.String("url", finalURL))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("resource not found (404) - the requested document or endpoint does not exist")
		case http.StatusForbidden:
			return nil, fmt.Errorf("access denied (403) - the document may not be retrievable or access is restricted")
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded (429) - arXiv asks clients to pace their requests")
		case http.StatusInternalServerError:
			return nil, fmt.Errorf("server error (500) - the arXiv API is experiencing technical difficulties")
		case http.StatusBadRequest:
			return nil, fmt.Errorf("bad request (400) - invalid parameters or malformed query")
		default:
			return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error("Failed to read response body", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	s.logger.Info("Successfully read response body", slog.Int("bytes", len(body)))
	return body, nil
}
