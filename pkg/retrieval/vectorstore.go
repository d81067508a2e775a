package retrieval

// Thin client for the model gateway's vector-store search endpoint.  The
// response schema has drifted between gateway versions, so the decode goes
// through explicit typed variants and fails loudly on anything unknown.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// maxChunkRunes caps how much of a single result lands in the prompt.
const maxChunkRunes = 1200

/*
Searcher is the retrieval interface the chat adapter depends on.
*/
type Searcher interface {
	Search(ctx context.Context, query string) (Context, error)
}

/*
Context is the formatted retrieval result injected ahead of the caller's
messages.
*/
type Context struct {
	Text    string
	Results int
	Elapsed time.Duration
}

/*
Client searches one vector store through the gateway's REST API.
*/
type Client struct {
	baseURL    string
	storeID    string
	searchMode string
	maxResults int
	httpClient *http.Client
}

func NewClient(baseURL, storeID, searchMode string, maxResults int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storeID:    storeID,
		searchMode: searchMode,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results"`
	SearchMode    string `json:"search_mode"`
	RewriteQuery  bool   `json:"rewrite_query"`
}

type searchResponse struct {
	Data []searchResult `json:"data"`
}

type searchResult struct {
	Filename string         `json:"filename"`
	Score    float64        `json:"score"`
	Content  []contentChunk `json:"content"`
}

type contentChunk struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) Search(ctx context.Context, query string) (Context, error) {
	if c.storeID == "" {
		return Context{Text: "Vector store is not configured; retrieval is disabled."}, nil
	}

	if query == "" {
		return Context{Text: "Empty query; retrieval skipped."}, nil
	}

	body, err := json.Marshal(searchRequest{
		Query:         query,
		MaxNumResults: c.maxResults,
		SearchMode:    c.searchMode,
		RewriteQuery:  true,
	})
	if err != nil {
		return Context{}, err
	}

	url := fmt.Sprintf("%s/v1/vector_stores/%s/search", c.baseURL, c.storeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Context{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Context{}, fmt.Errorf("vector store search failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return Context{}, fmt.Errorf("vector store search returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed searchResponse

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Context{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	elapsed := time.Since(start)
	text, count, err := Format(c.storeID, parsed.Data, c.maxResults)

	if err != nil {
		return Context{}, err
	}

	log.Debug("vector store search", "store", c.storeID, "results", count, "elapsed", elapsed)

	return Context{Text: text, Results: count, Elapsed: elapsed}, nil
}

/*
Format renders ranked results into the numbered context block fed to the
model.  Chunks with an unrecognized content type are an error, not silently
empty text.
*/
func Format(storeID string, results []searchResult, limit int) (string, int, error) {
	if len(results) == 0 {
		return "No relevant documentation found.", 0, nil
	}

	if len(results) > limit {
		results = results[:limit]
	}

	var chunks []string

	for i, result := range results {
		content := ""

		if len(result.Content) > 0 {
			first := result.Content[0]

			if first.Type != "text" {
				return "", 0, fmt.Errorf("unrecognized content chunk type %q in search result", first.Type)
			}

			content = first.Text
		}

		runes := []rune(content)
		if len(runes) > maxChunkRunes {
			content = string(runes[:maxChunkRunes]) + "..."
		}

		chunks = append(chunks, fmt.Sprintf(
			"[%d] %s (score=%.3f, store=...%s)\n%s",
			i+1, result.Filename, result.Score, storeTail(storeID), content,
		))
	}

	return strings.Join(chunks, "\n\n"), len(chunks), nil
}

func storeTail(storeID string) string {
	if len(storeID) <= 12 {
		return storeID
	}

	return storeID[len(storeID)-12:]
}
