// Package main provides the CLI entry point for the arxiv-mcp server that
// exposes arXiv article retrieval tools over the Model Context Protocol.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arxiv-tools/arxiv-mcp/internal/server"
)

const (
	version = "1.0.0"
	appName = "arxiv-mcp"
)

// validateAndSetMode validates that only one mode is specified and sets the
// default mode if none is specified.
func validateAndSetMode(sseMode, httpMode, stdioMode *bool) {
	modeCount := 0
	if *sseMode {
		modeCount++
	}
	if *httpMode {
		modeCount++
	}
	if *stdioMode {
		modeCount++
	}

	if modeCount > 1 {
		fmt.Fprintf(os.Stderr, "Error: Cannot specify multiple modes (-sse, -http, and -stdio are mutually exclusive)\n")
		os.Exit(1)
	}

	if modeCount == 0 {
		*stdioMode = true
	}
}

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		sseMode     = flag.Bool("sse", false, "Start SSE stream server mode (real-time with heartbeat)")
		httpMode    = flag.Bool("http", false, "Start HTTP server mode (stateless, easier for hosting/caching)")
		serverAddr  = flag.String("addr", ":8080", "Server address (used with -sse or -http)")
		stdioMode   = flag.Bool("stdio", false, "Use stdio mode (default)")
		debugMode   = flag.Bool("debug", false, "Enable debug logging")
		downloadDir = flag.String("download-dir", os.Getenv("ARXIV_DOWNLOAD_DIR"),
			"Directory where downloaded articles are saved (default $ARXIV_DOWNLOAD_DIR, falling back to ./downloads)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", appName)
		fmt.Fprintf(os.Stderr, "%s - arXiv Article Retrieval MCP Server\n\n", appName)
		fmt.Fprintf(os.Stderr, "This server lets LLM agents locate, download, and read academic papers\n")
		fmt.Fprintf(os.Stderr, "hosted on arXiv.org through the Model Context Protocol (MCP) interface.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nMODES:\n")
		fmt.Fprintf(os.Stderr, "  Default mode is stdio for use with MCP clients\n")
		fmt.Fprintf(os.Stderr, "  SSE mode provides real-time streaming with heartbeat (best for development/testing)\n")
		fmt.Fprintf(os.Stderr, "  HTTP mode is stateless and easier for production hosting with load balancers/caching\n\n")
		fmt.Fprintf(os.Stderr, "EXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                            # Start in stdio mode (default)\n", appName)
		fmt.Fprintf(os.Stderr, "  %s -sse                       # Start SSE server on :8080\n", appName)
		fmt.Fprintf(os.Stderr, "  %s -http -addr :9000          # Start HTTP server on :9000\n", appName)
		fmt.Fprintf(os.Stderr, "  %s -download-dir ~/papers     # Save downloads under ~/papers\n", appName)
		fmt.Fprintf(os.Stderr, "  %s -debug                     # Enable debug logging\n", appName)
		fmt.Fprintf(os.Stderr, "\nLOGGING:\n")
		fmt.Fprintf(os.Stderr, "  Logs are written to stderr in stdio, SSE, and HTTP modes\n")
		fmt.Fprintf(os.Stderr, "  Use -debug for detailed request/response logging\n\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		os.Exit(0)
	}

	validateAndSetMode(sseMode, httpMode, stdioMode)

	config := server.Config{
		DebugMode:   *debugMode,
		DownloadDir: *downloadDir,
	}

	arxivServer := server.NewArxivServerWithConfig(config)

	var err error
	if *sseMode {
		fmt.Fprintf(os.Stderr, "Starting %s SSE server on %s (debug=%v)\n", appName, *serverAddr, *debugMode)
		err = arxivServer.RunSSE(*serverAddr)
	} else if *httpMode {
		fmt.Fprintf(os.Stderr, "Starting %s HTTP server on %s (debug=%v)\n", appName, *serverAddr, *debugMode)
		err = arxivServer.RunHTTP(*serverAddr)
	} else {
		// stdio mode - startup messages would interfere with MCP framing on stdout
		err = arxivServer.RunStdio()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
