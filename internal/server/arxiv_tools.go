package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arxiv-tools/arxiv-mcp/pkg/arxiv"
	"github.com/arxiv-tools/arxiv-mcp/pkg/common"
)

// User-facing result strings. Every tool reports failure as a plain string;
// callers distinguish success from failure only by inspecting content.
const (
	msgNoData        = "unable to retrieve data from the source."
	msgNoIdentifier  = "unable to extract an identifier for the provided title. The title may be incorrect, incomplete, or the work may not be available in the repository."
	msgFetchFailed   = "unable to retrieve the article"
	msgSaveFailed    = "unable to save the article to the local directory"
	msgExtractFailed = "unable to extract text from the article"
)

// Sentinel resolution failures. Transport problems of every kind collapse
// into errNoData; only a well-formed feed with zero usable entries yields
// errNoEntries, so the two user-facing resolution messages stay distinct.
var (
	errNoData    = errors.New("no data returned from the arXiv API")
	errNoEntries = errors.New("feed contains no usable entries")
)

func (s *ArxivServer) registerArxivTools() {
	s.server.AddTool(mcp.Tool{
		Name:        "get_article_url",
		Description: "Resolve the title of an academic paper to its PDF retrieval URL on arXiv.org. Performs an exact title-field search against the arXiv query API, takes the first matching entry, and returns the direct PDF URL derived from the paper's arXiv identifier. Use this when you need a citable link to a paper or want to verify that a paper exists on arXiv before downloading it. The title does not need to be perfectly formatted: whitespace and literal escape artifacts are cleaned up before searching. Known limitations: only the first search result is considered, and titles containing double-quote characters may not match.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "The paper's title, as close to the published title as possible (e.g. 'Attention Is All You Need'). The search is an exact title-field match, so a complete title works far better than keywords or a partial title.",
				},
			},
			Required: []string{"title"},
		},
	}, s.handleGetArticleURL)

	s.server.AddTool(mcp.Tool{
		Name:        "download_article",
		Description: "Download a paper from arXiv.org by title and save it as a PDF file in the server's configured download directory. The title is resolved through the arXiv query API, the PDF is fetched, and the file is written as <identifier>.pdf (e.g. 1706.03762.pdf). Returns a confirmation naming the download directory on success. Use this when the user wants a local copy of a paper for later reading or archival rather than its content in the conversation.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "The paper's title, as close to the published title as possible. The same resolution rules as get_article_url apply.",
				},
			},
			Required: []string{"title"},
		},
	}, s.handleDownloadArticle)

	s.server.AddTool(mcp.Tool{
		Name:        "load_article_to_context",
		Description: "Load the full text of a paper hosted on arXiv.org into the conversation context. The title is resolved through the arXiv query API, the PDF is fetched, and plain text is extracted page by page in page order. Returns one concatenated string containing the text of every page. Use this when the user wants to discuss, summarize, or ask questions about a paper's actual content. Long papers produce long results; prefer get_article_url when only a reference is needed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "The paper's title, as close to the published title as possible. The same resolution rules as get_article_url apply.",
				},
			},
			Required: []string{"title"},
		},
	}, s.handleLoadArticleToContext)
}

// resolveArticle queries the arXiv search API for an exact title match and
// derives the identifier and PDF URL from the first entry. The returned error
// wraps errNoData or errNoEntries so handlers can pick the right user-facing
// message without string matching.
func (s *ArxivServer) resolveArticle(ctx context.Context, title string) (arxiv.Article, error) {
	// Quotes are part of the arXiv query syntax: ti:"<title>" requests an
	// exact title-field match. Embedded quotes in the title itself are passed
	// through unescaped, mirroring the upstream behavior this tool wraps.
	params := map[string]string{
		"search_query": `ti:"` + title + `"`,
	}

	data, err := s.makeRequest(ctx, s.config.APIBaseURL, params, "application/atom+xml")
	if err != nil {
		s.logger.Warn("arXiv search request failed",
			slog.String("title", title),
			slog.Any("error", err))
		return arxiv.Article{}, fmt.Errorf("%w: %v", errNoData, err)
	}

	// Tolerant-parser semantics: an unparsable body behaves like a feed with
	// zero entries rather than a transport failure.
	feed, err := arxiv.ParseFeed(data)
	if err != nil {
		s.logger.Warn("arXiv search response is not a valid feed",
			slog.String("title", title),
			slog.Any("error", err))
		return arxiv.Article{}, fmt.Errorf("%w: %v", errNoEntries, err)
	}

	if len(feed.Entries) == 0 {
		s.logger.Info("arXiv search returned no entries", slog.String("title", title))
		return arxiv.Article{}, errNoEntries
	}

	// Always the first entry. The API's own ordering is the only ranking;
	// no disambiguation among multiple matches is attempted.
	entry := feed.Entries[0]
	id := arxiv.ExtractID(entry.ID)
	if id == "" {
		s.logger.Warn("First feed entry carries no /abs/ identifier",
			slog.String("entryID", entry.ID))
		return arxiv.Article{}, fmt.Errorf("%w: entry ID %q has no /abs/ segment", errNoEntries, entry.ID)
	}

	article := arxiv.Article{
		ID:     id,
		PDFURL: s.config.PDFBaseURL + "/" + id,
	}
	s.logger.Info("Resolved article",
		slog.String("title", title),
		slog.String("entryTitle", strings.TrimSpace(entry.Title)),
		slog.String("identifier", article.ID),
		slog.String("pdfURL", article.PDFURL))
	return article, nil
}

// resolveErrorMessage maps a resolveArticle failure to its fixed user-facing string.
func resolveErrorMessage(err error) string {
	if errors.Is(err, errNoEntries) {
		return msgNoIdentifier
	}
	return msgNoData
}

// fetchPDF retrieves the raw PDF bytes from a direct URL.
func (s *ArxivServer) fetchPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	return s.makeRequest(ctx, pdfURL, nil, "application/pdf")
}

// extractTextFromPDF extracts plain text from PDF data using go-fitz,
// concatenating pages in page order with no inserted separators. Malformed
// document bytes fail the open operation; a page whose extraction fails is
// skipped with a warning rather than aborting the whole document.
func (s *ArxivServer) extractTextFromPDF(pdfData []byte) (string, error) {
	s.logger.Info("Starting PDF text extraction", slog.Int("bytes", len(pdfData)))

	if len(pdfData) == 0 {
		return "", fmt.Errorf("PDF data is empty")
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		s.logger.Error("Failed to parse PDF document",
			slog.Int("bytes", len(pdfData)),
			slog.Any("error", err))
		return "", fmt.Errorf("failed to parse PDF document (%d bytes): %w", len(pdfData), err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			s.logger.Warn("Failed to close PDF document", slog.Any("error", err))
		}
	}()

	pageCount := doc.NumPage()
	s.logger.Info("PDF document parsed", slog.Int("pages", pageCount))

	var textBuilder strings.Builder
	var failedPages int
	for i := 0; i < pageCount; i++ {
		text, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page",
				slog.Int("page", i+1),
				slog.Any("error", err))
			failedPages++
			continue
		}
		textBuilder.WriteString(text)
	}

	extracted := textBuilder.String()
	s.logger.Info("PDF text extraction completed",
		slog.Int("totalPages", pageCount),
		slog.Int("failedPages", failedPages),
		slog.Int("totalCharacters", len(extracted)))
	return extracted, nil
}

// normalizedTitle pulls the title argument from the request and normalizes
// it. An empty result means the request carried no usable title.
func normalizedTitle(request mcp.CallToolRequest) string {
	return common.NormalizeTitle(request.GetString("title", ""))
}

func (s *ArxivServer) handleGetArticleURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := normalizedTitle(request)
	if title == "" {
		return mcp.NewToolResultError("The title parameter is required. Provide the paper's title, e.g. 'Attention Is All You Need'."), nil
	}

	article, err := s.resolveArticle(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(resolveErrorMessage(err)), nil
	}

	return mcp.NewToolResultText(article.PDFURL), nil
}

func (s *ArxivServer) handleDownloadArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := normalizedTitle(request)
	if title == "" {
		return mcp.NewToolResultError("The title parameter is required. Provide the paper's title, e.g. 'Attention Is All You Need'."), nil
	}

	article, err := s.resolveArticle(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(resolveErrorMessage(err)), nil
	}

	pdfData, err := s.fetchPDF(ctx, article.PDFURL)
	if err != nil {
		s.logger.Warn("PDF fetch failed",
			slog.String("identifier", article.ID),
			slog.String("url", article.PDFURL),
			slog.Any("error", err))
		return mcp.NewToolResultError(msgFetchFailed), nil
	}

	// The download directory is taken as configured; only the write itself
	// is guarded.
	path := filepath.Join(s.config.DownloadDir, article.ID+".pdf")
	if err := os.WriteFile(path, pdfData, 0o644); err != nil {
		s.logger.Error("Failed to write article to disk",
			slog.String("path", path),
			slog.Int("bytes", len(pdfData)),
			slog.Any("error", err))
		return mcp.NewToolResultError(msgSaveFailed), nil
	}

	s.logger.Info("Article saved",
		slog.String("identifier", article.ID),
		slog.String("path", path),
		slog.Int("bytes", len(pdfData)))
	return mcp.NewToolResultText(fmt.Sprintf("Successfully saved %s.pdf to %s", article.ID, s.config.DownloadDir)), nil
}

func (s *ArxivServer) handleLoadArticleToContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := normalizedTitle(request)
	if title == "" {
		return mcp.NewToolResultError("The title parameter is required. Provide the paper's title, e.g. 'Attention Is All You Need'."), nil
	}

	article, err := s.resolveArticle(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(resolveErrorMessage(err)), nil
	}

	pdfData, err := s.fetchPDF(ctx, article.PDFURL)
	if err != nil {
		s.logger.Warn("PDF fetch failed",
			slog.String("identifier", article.ID),
			slog.String("url", article.PDFURL),
			slog.Any("error", err))
		return mcp.NewToolResultError(msgFetchFailed), nil
	}

	text, err := s.extractTextFromPDF(pdfData)
	if err != nil {
		return mcp.NewToolResultError(msgExtractFailed), nil
	}

	return mcp.NewToolResultText(text), nil
}
