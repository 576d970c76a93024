// Package pathstore is the remote graph collaborator: tree sections become
// pathstore nodes and graph edges become pathstore links.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/treeindex/internal/graphsync"
)

const sectionPrefix = "treeindex/sections/"

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any     `json:"value"`
	MergeMode  string  `json:"merge_mode,omitempty"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From          string  `json:"from_key"`
	To            string  `json:"to_key"`
	Weight        float64 `json:"weight"`
	Summary       string  `json:"summary,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// KeyFor maps a graph id to a pathstore key. Section ids live under a fixed
// prefix; other ids (documents, entities) are already pathstore keys.
func KeyFor(id string) string {
	if strings.HasPrefix(id, "docsec_") {
		return sectionPrefix + id
	}
	return id
}

// AddNode stores a section node, replacing any previous value.
func (c *Client) AddNode(ctx context.Context, n graphsync.Node) error {
	return c.PutNode(ctx, KeyFor(n.ID), NodeRequest{
		Value:      n.Properties,
		MergeMode:  "replace",
		MemoryType: n.Label,
		Salience:   0.5,
		Source:     "treeindex",
	})
}

// AddEdge stores an edge as a weighted link whose summary is the edge type.
func (c *Client) AddEdge(ctx context.Context, e graphsync.Edge) error {
	return c.PutLink(ctx, LinkRequest{
		From:    KeyFor(e.From),
		To:      KeyFor(e.To),
		Weight:  1.0,
		Summary: e.Type,
	})
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return c.put(ctx, "/kv/"+escapeKey(key), body, "put node "+key)
}

// escapeKey escapes each segment of a slash-separated key for use in a path.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// PutLink creates or updates an edge between two nodes.
func (c *Client) PutLink(ctx context.Context, req LinkRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	return c.put(ctx, "/links", body, "put link")
}

func (c *Client) put(ctx context.Context, path string, body []byte, op string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
