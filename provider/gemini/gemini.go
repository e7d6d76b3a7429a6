package gemini_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the Gemini generateContent REST API. When the configured
// model is unknown to the API, the client switches to the fallback model
// and stays there for the rest of the process.
type Client struct {
	apiKey        string
	model         string
	fallbackModel string
	httpClient    *http.Client

	mu         sync.Mutex
	activeModel string
}

func NewClient(apiKey, model, fallbackModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:        apiKey,
		model:         model,
		fallbackModel: fallbackModel,
		activeModel:   model,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces the next assistant reply given the system prompt and
// the conversation so far.
func (c *Client) Generate(ctx context.Context, system string, history []Message) (string, error) {
	reply, err := c.generateWith(ctx, c.currentModel(), system, history)
	if err == nil {
		return reply, nil
	}
	if c.fallbackModel == "" || !isModelNotFound(err) || c.currentModel() == c.fallbackModel {
		return "", err
	}
	c.setModel(c.fallbackModel)
	return c.generateWith(ctx, c.fallbackModel, system, history)
}

func (c *Client) generateWith(ctx context.Context, model, system string, history []Message) (string, error) {
	reqBody := request{Contents: make([]content, 0, len(history))}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		reqBody.Contents = append(reqBody.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp response
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if geminiResp.Error != nil {
			msg = geminiResp.Error.Message
		}
		return "", &apiError{StatusCode: resp.StatusCode, Message: msg}
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model %s", model)
	}

	var sb strings.Builder
	for _, p := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *Client) currentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeModel
}

func (c *Client) setModel(model string) {
	c.mu.Lock()
	c.activeModel = model
	c.mu.Unlock()
}

type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini API returned status %d: %s", e.StatusCode, e.Message)
}

func isModelNotFound(err error) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	return ae.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(ae.Message), "not found")
}
