package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/domain"
)

const defaultBaseURL = "http://localhost:8000/api"

// sessionResponse is the payload returned by the session-creation endpoint.
type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// filesResponse is the payload returned by the file-list endpoint.
type filesResponse struct {
	Files []string `json:"files"`
}

// historyResponse is the payload returned by the chat-history endpoint.
type historyResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type saveMessageRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// errorBody is the shape FastAPI-style backends use for non-2xx responses.
type errorBody struct {
	Detail string `json:"detail"`
}

// StatusError captures non-2xx backend responses with status-aware context.
type StatusError struct {
	StatusCode int
	URL        string
	Detail     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Detail)
	}
	return fmt.Sprintf("backend: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// BackendDetail returns the backend-provided detail message, or "" when the
// error body carried none.
func (e *StatusError) BackendDetail() string {
	return e.Detail
}

// Client is a focused client for the PDF-chat backend's REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout replaces the client-level request deadline. Every outbound call
// inherits it, so no request can hang indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a Client for the given backend. Defaults target a local
// development server with a 15s per-request deadline.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 15s timeout if none was set (e.g. in tests that nil out the field).
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// endpointURL joins a path and query values against the configured base URL.
func (c *Client) endpointURL(path string, query url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func sessionQuery(sessionID string) url.Values {
	return url.Values{"session_id": []string{sessionID}}
}

// CreateSession asks the backend for a fresh session identifier.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	raw, err := c.doJSON(ctx, http.MethodPost, c.endpointURL("/session/create", nil), nil)
	if err != nil {
		return "", fmt.Errorf("backend: create session: %w", err)
	}
	var payload sessionResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("backend: decode session response: %w", decErr)
	}
	if payload.SessionID == "" {
		return "", errors.New("backend: empty session_id in response")
	}
	return payload.SessionID, nil
}

// ListFiles returns the document names the backend holds for the session.
func (c *Client) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, c.endpointURL("/files", sessionQuery(sessionID)), nil)
	if err != nil {
		return nil, fmt.Errorf("backend: list files: %w", err)
	}
	var payload filesResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("backend: decode files response: %w", decErr)
	}
	return payload.Files, nil
}

// ChatHistory returns the prior question/answer pairs for the session.
func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, c.endpointURL("/chat-history", sessionQuery(sessionID)), nil)
	if err != nil {
		return nil, fmt.Errorf("backend: chat history: %w", err)
	}
	var payload historyResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("backend: decode history response: %w", decErr)
	}
	msgs := payload.Messages
	for i := range msgs {
		msgs[i].Status = domain.StatusResolved
	}
	return msgs, nil
}

// Upload sends a document as a multipart payload scoped to the session.
func (c *Client) Upload(ctx context.Context, sessionID, filename string, r io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("backend: build multipart payload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("backend: read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("backend: finalize multipart payload: %w", err)
	}

	u := c.endpointURL("/upload", sessionQuery(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return fmt.Errorf("backend: create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Correlation-Id", uuid.NewString())

	if _, err := c.do(req, u); err != nil {
		return fmt.Errorf("backend: upload %s: %w", filename, err)
	}
	return nil
}

// DeleteFile removes a document from the session. The filename travels as an
// escaped query parameter.
func (c *Client) DeleteFile(ctx context.Context, sessionID, filename string) error {
	query := sessionQuery(sessionID)
	query.Set("filename", filename)
	u := c.endpointURL("/delete-file", query)
	if _, err := c.doJSON(ctx, http.MethodDelete, u, nil); err != nil {
		return fmt.Errorf("backend: delete %s: %w", filename, err)
	}
	return nil
}

// Ask submits a question and returns the generated answer.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("backend: marshal ask request: %w", err)
	}
	raw, err := c.doJSON(ctx, http.MethodPost, c.endpointURL("/ask", sessionQuery(sessionID)), body)
	if err != nil {
		return "", fmt.Errorf("backend: ask: %w", err)
	}
	var payload askResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("backend: decode ask response: %w", decErr)
	}
	return payload.Answer, nil
}

// SaveMessage persists a resolved question/answer pair in the backend's
// history store. Callers treat failures as advisory.
func (c *Client) SaveMessage(ctx context.Context, sessionID, question, answer string) error {
	body, err := json.Marshal(saveMessageRequest{Question: question, Answer: answer})
	if err != nil {
		return fmt.Errorf("backend: marshal save-message request: %w", err)
	}
	if _, err := c.doJSON(ctx, http.MethodPost, c.endpointURL("/save-message", sessionQuery(sessionID)), body); err != nil {
		return fmt.Errorf("backend: save message: %w", err)
	}
	return nil
}

// Reset clears all server-held state for the session.
func (c *Client) Reset(ctx context.Context, sessionID string) error {
	if _, err := c.doJSON(ctx, http.MethodPost, c.endpointURL("/reset", sessionQuery(sessionID)), nil); err != nil {
		return fmt.Errorf("backend: reset: %w", err)
	}
	return nil
}

// doJSON issues a request with an optional JSON body and returns the raw
// response bytes.
func (c *Client) doJSON(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Correlation-Id", uuid.NewString())
	return c.do(req, u)
}

func (c *Client) do(req *http.Request, u string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			URL:        u,
			Detail:     parseDetail(buf),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// parseDetail extracts the backend's detail message from an error body, if
// one is present.
func parseDetail(buf []byte) string {
	var eb errorBody
	if err := json.Unmarshal(buf, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Detail)
}
