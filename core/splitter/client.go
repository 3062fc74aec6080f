package splitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"WaveSplit/logger"
	"WaveSplit/model"
)

// Client talks to the audio analysis backend over its REST contract. All
// failures, whether transport level or backend reported, surface as
// *model.TransportError so callers never have to tell them apart.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client. Splits of long recordings can take
// minutes, so the timeout is generous and configurable.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Split asks the backend to segment the file at the given path.
func (c *Client) Split(ctx context.Context, filePath string) (*SplitResult, error) {
	body, err := c.postJSON(ctx, "/audio/split", splitRequest{FilePath: filePath})
	if err != nil {
		return nil, &model.TransportError{Op: "split", Cause: err}
	}

	var result SplitResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &model.TransportError{Op: "split", Cause: fmt.Errorf("decoding response: %w", err)}
	}

	logger.Debug("split response received",
		logger.String("filePath", filePath),
		logger.Int("segments", len(result.Segments)),
		logger.Int("mismatches", len(result.MismatchOffsets)))
	return &result, nil
}

// GetSegment fetches the raw audio bytes of one segment for preview.
func (c *Client) GetSegment(ctx context.Context, filePath string, offset, duration float64) ([]byte, error) {
	body, err := c.postJSON(ctx, "/audio/get-segment", getSegmentRequest{
		FilePath: filePath,
		Offset:   offset,
		Duration: duration,
	})
	if err != nil {
		return nil, &model.TransportError{Op: "get-segment", Cause: err}
	}
	return body, nil
}

// Store asks the backend to write one tagged segment file into the target
// directory. The backend reports only success; the deterministic target
// path is computed by the caller.
func (c *Client) Store(ctx context.Context, req StoreRequest) error {
	body, err := c.postJSON(ctx, "/audio/store", req)
	if err != nil {
		return &model.TransportError{Op: "store", Cause: err}
	}

	var resp storeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &model.TransportError{Op: "store", Cause: fmt.Errorf("decoding response: %w", err)}
	}
	if !resp.Success {
		return &model.TransportError{Op: "store", Cause: fmt.Errorf("backend reported failure")}
	}
	return nil
}

// postJSON sends one JSON request and returns the raw response body.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
