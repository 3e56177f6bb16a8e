package meshy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the Meshy multi-image-to-3D API.
type Client struct {
	baseURL string
	apiKey  string

	httpClient     *http.Client // submit + status
	downloadClient *http.Client // model binary downloads
	streamClient   *http.Client // SSE status streams
}

// APIError is a non-2xx answer from the Meshy API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meshy api: status %d, body: %s", e.StatusCode, e.Body)
}

// SubmitResult is the answer to a task submission. Raw keeps the full
// provider payload so callers can persist it verbatim.
type SubmitResult struct {
	TaskID string
	Raw    map[string]interface{}
}

// Task is the normalized view of a generation task. Status is canonical
// (see NormalizeStatus); Raw keeps the untouched provider payload.
type Task struct {
	Status       string
	Progress     int
	ModelURL     string
	ThumbnailURL string
	VideoURL     string
	Raw          map[string]interface{}
}

// TaskEvent is one event from the task status stream. Err is set on the
// final event when the upstream stream fails.
type TaskEvent struct {
	Status string
	Data   map[string]interface{}
	Err    error
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		downloadClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		streamClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type submitRequest struct {
	ImageURLs     []string `json:"image_urls"`
	ShouldRemesh  bool     `json:"should_remesh"`
	ShouldTexture bool     `json:"should_texture"`
	EnablePBR     bool     `json:"enable_pbr"`
}

// SubmitMultiImageTask creates a new generation task from a set of image
// URLs. Remeshing, texturing and PBR are always on; they are deployment
// policy, not caller options.
func (c *Client) SubmitMultiImageTask(ctx context.Context, imageURLs []string) (*SubmitResult, error) {
	payload := submitRequest{
		ImageURLs:     imageURLs,
		ShouldRemesh:  true,
		ShouldTexture: true,
		EnablePBR:     true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/multi-image-to-3d"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	taskID := stringField(raw, "result")
	if taskID == "" {
		return nil, fmt.Errorf("result task id is empty in response, body: %s", string(body))
	}

	return &SubmitResult{TaskID: taskID, Raw: raw}, nil
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	url := c.baseURL + "/multi-image-to-3d/" + taskID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return taskFromPayload(raw), nil
}

// taskFromPayload maps the loosely typed provider payload onto Task.
// Missing or malformed fields degrade to defaults instead of failing.
func taskFromPayload(raw map[string]interface{}) *Task {
	task := &Task{
		Status:       NormalizeStatus(stringField(raw, "status")),
		Progress:     intField(raw, "progress"),
		ModelURL:     stringField(raw, "model_url"),
		ThumbnailURL: stringField(raw, "thumbnail_url"),
		VideoURL:     stringField(raw, "video_url"),
		Raw:          raw,
	}

	// Some payload variants nest the asset URL under model.url.
	if task.ModelURL == "" {
		if model, ok := raw["model"].(map[string]interface{}); ok {
			task.ModelURL = stringField(model, "url")
		}
	}

	return task
}

// DownloadModelTo streams the binary asset at downloadURL into w.
func (c *Client) DownloadModelTo(ctx context.Context, downloadURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	return nil
}

// StreamTask opens the task's SSE status stream and relays each event on
// the returned channel. The channel is closed after a terminal status,
// an upstream error (forwarded as a final event with Err set), or ctx
// cancellation. The upstream connection is closed on every exit path.
func (c *Client) StreamTask(ctx context.Context, taskID string) (<-chan TaskEvent, error) {
	url := c.baseURL + "/multi-image-to-3d/" + taskID + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	ch := make(chan TaskEvent)
	go func() {
		defer resp.Body.Close()
		defer close(ch)

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					select {
					case <-ctx.Done():
					case ch <- TaskEvent{Err: fmt.Errorf("stream read failed: %w", err)}:
					}
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				select {
				case <-ctx.Done():
				case ch <- TaskEvent{Err: fmt.Errorf("malformed stream event: %w", err)}:
				}
				return
			}

			event := TaskEvent{
				Status: NormalizeStatus(stringField(payload, "status")),
				Data:   payload,
			}

			select {
			case <-ctx.Done():
				return
			case ch <- event:
			}

			if IsTerminal(event.Status) {
				return
			}
		}
	}()

	return ch, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	// JSON numbers arrive as float64
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
