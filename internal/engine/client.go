// Package engine provides the HTTP client for a locally running ComfyUI
// instance and the supervisor that owns its process.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the engine's HTTP surface. All calls use bounded timeouts;
// artifact retrieval gets a longer budget than control-plane calls.
type Client struct {
	host   string
	base   string
	http   *http.Client
	view   *http.Client
	probe  *http.Client
	logger *slog.Logger
}

// NewClient creates a client for the engine at host (host:port).
func NewClient(host string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		host:   host,
		base:   "http://" + host,
		http:   &http.Client{Timeout: 30 * time.Second},
		view:   &http.Client{Timeout: 60 * time.Second},
		probe:  &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Host returns the engine's host:port, used to build the stream URL.
func (c *Client) Host() string { return c.host }

// Probe checks whether the engine answers on its root endpoint, retrying up
// to attempts times with a fixed interval. Transport errors and timeouts are
// failed attempts, never fatal.
func (c *Client) Probe(ctx context.Context, attempts int, interval time.Duration) bool {
	c.logger.Info("checking engine availability", slog.String("host", c.host))

	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
		if err == nil {
			resp, err := c.probe.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					c.logger.Info("engine is reachable")
					return true
				}
			}
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}

	c.logger.Error("engine not reachable",
		slog.String("host", c.host),
		slog.Int("attempts", attempts),
	)
	return false
}

// Submit queues a workflow scoped to clientID and returns the prompt id the
// engine assigned. A 400 response with structured findings becomes a
// *ValidationError; any other non-2xx or network failure a *TransportError;
// a success response without a prompt id a *ProtocolError.
func (c *Client) Submit(ctx context.Context, workflow map[string]json.RawMessage, clientID string) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: workflow, ClientID: clientID})
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("engine rejected workflow", slog.String("body", string(raw)))
		return "", parseValidationError(raw)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{Op: "submit", Status: resp.StatusCode}
	}

	var queued submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", &ProtocolError{Message: fmt.Sprintf("invalid queue response: %v", err)}
	}
	if queued.PromptID == "" {
		return "", &ProtocolError{Message: "missing 'prompt_id' in queue response"}
	}
	return queued.PromptID, nil
}

// History fetches the completed-work record keyed by prompt id.
func (c *Client) History(ctx context.Context, promptID string) (map[string]HistoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, &TransportError{Op: "history", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "history", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "history", Status: resp.StatusCode}
	}

	var history map[string]HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, &TransportError{Op: "history", Err: err}
	}
	return history, nil
}

// Queue fetches the pending/running work list snapshot.
func (c *Client) Queue(ctx context.Context) (*QueueSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/queue", nil)
	if err != nil {
		return nil, &TransportError{Op: "queue", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "queue", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "queue", Status: resp.StatusCode}
	}

	var snap QueueSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, &TransportError{Op: "queue", Err: err}
	}
	return &snap, nil
}

// View fetches the raw bytes of one artifact.
func (c *Client) View(ctx context.Context, ref ImageRef) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "view", Err: err}
	}

	resp, err := c.view.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "view", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "view", Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// UploadImage stages an input artifact into the engine's input folder,
// overwriting any existing file of the same name.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if err := mw.WriteField("overwrite", "true"); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if err := mw.Close(); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload/image", &buf)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "upload", Status: resp.StatusCode}
	}
	return nil
}
