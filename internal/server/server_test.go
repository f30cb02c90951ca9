package server

import (
	"testing"
	"time"
)

func TestServerConfiguration(t *testing.T) {
	t.Parallel()

	t.Run("default configuration", func(t *testing.T) {
		t.Parallel()
		server := NewArxivServer()
		if server == nil {
			t.Fatal("NewArxivServer should return non-nil server")
		}
		if server.config.DebugMode {
			t.Error("Default config should have DebugMode=false")
		}
		if server.config.APIBaseURL != defaultAPIBaseURL {
			t.Errorf("Expected default API base URL %q, got %q", defaultAPIBaseURL, server.config.APIBaseURL)
		}
		if server.config.PDFBaseURL != defaultPDFBaseURL {
			t.Errorf("Expected default PDF base URL %q, got %q", defaultPDFBaseURL, server.config.PDFBaseURL)
		}
		if server.config.DownloadDir != defaultDownloadDir {
			t.Errorf("Expected default download dir %q, got %q", defaultDownloadDir, server.config.DownloadDir)
		}
	})

	t.Run("custom configuration", func(t *testing.T) {
		t.Parallel()
		config := Config{
			DebugMode:   true,
			DownloadDir: "/tmp/papers",
			APIBaseURL:  "http://localhost:1234/api/query",
			PDFBaseURL:  "http://localhost:1234/pdf",
		}
		server := NewArxivServerWithConfig(config)
		if server == nil {
			t.Fatal("NewArxivServerWithConfig should return non-nil server")
		}
		if !server.config.DebugMode {
			t.Error("Debug config should have DebugMode=true")
		}
		if server.config.DownloadDir != "/tmp/papers" {
			t.Errorf("Expected download dir '/tmp/papers', got %q", server.config.DownloadDir)
		}
		if server.config.APIBaseURL != "http://localhost:1234/api/query" {
			t.Errorf("Custom API base URL was not kept, got %q", server.config.APIBaseURL)
		}
	})

	t.Run("client timeout", func(t *testing.T) {
		t.Parallel()
		server := NewArxivServer()
		if server.client.Timeout != 30*time.Second {
			t.Errorf("Expected 30s client timeout, got %v", server.client.Timeout)
		}
	})
}

func TestLRUTTLCache(t *testing.T) {
	t.Parallel()
	cache := NewLRUTTLCache(2, time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	cache.Set("a", []byte("first"))
	if data, ok := cache.Get("a"); !ok || string(data) != "first" {
		t.Errorf("Expected cached value 'first', got %q (ok=%v)", data, ok)
	}

	cache.Delete("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("Expected miss after delete")
	}

	// Size 2: inserting a third entry evicts the least recently used.
	cache.Set("x", []byte("1"))
	cache.Set("y", []byte("2"))
	cache.Set("z", []byte("3"))
	if _, ok := cache.Get("x"); ok {
		t.Error("Expected oldest entry to be evicted")
	}
	if _, ok := cache.Get("z"); !ok {
		t.Error("Expected newest entry to be retained")
	}
}
