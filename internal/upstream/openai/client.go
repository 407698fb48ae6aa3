// Package openai dispatches generation requests to an OpenAI-compatible
// backend. Two request/response shapes are supported: the "responses" API
// used by newer model families and the legacy chat completions API. The
// shape is chosen per request from a model-name prefix table.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries bounds transient-failure retries: at most three
	// attempts in total.
	DefaultMaxRetries = 2

	// DefaultInitialBackoff is the first retry wait; it doubles per retry.
	DefaultInitialBackoff = time.Second

	maxErrorSummaryBytes = 600
)

type ObserverFunc func(endpoint string, status int, retries int, duration time.Duration)

type Option func(*Client)

type Client struct {
	baseURL           string
	apiKey            string
	httpClient        *http.Client
	responsesPrefixes []string
	maxRetries        int
	initialBackoff    time.Duration
	sleep             func(time.Duration)
	observer          ObserverFunc
	logger            *slog.Logger
}

// Error carries the classification data for a failed dispatch: the last HTTP
// status (0 for network-level failures), the human-readable summary built
// from the upstream error body, and the retries consumed before giving up.
type Error struct {
	StatusCode int
	Summary    string
	RetryCount int
}

func (e *Error) Error() string {
	base := fmt.Sprintf("generation request failed (status: %d)", e.StatusCode)
	if e.Summary != "" {
		return base + ": " + e.Summary
	}
	return base
}

// Request holds the immutable parameters of one generation call.
type Request struct {
	SystemPrompt       string
	UserPrompt         string
	Temperature        float64
	MaxOutputTokens    int
	Model              string
	IncludeTemperature bool
}

// Result is the successful outcome of a dispatch. RetryCount reports how
// many transient failures were absorbed before the final attempt.
type Result struct {
	Text         string
	FinishReason string
	Raw          json.RawMessage
	RetryCount   int
	StatusCode   int
}

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithRetryPolicy(maxRetries int, initialBackoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
	}
}

// WithSleep replaces the backoff wait, letting tests run retries instantly.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithResponsesPrefixes sets the model-name prefixes routed to the
// structured "responses" endpoint instead of chat completions.
func WithResponsesPrefixes(prefixes []string) Option {
	return func(c *Client) {
		c.responsesPrefixes = prefixes
	}
}

func New(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		apiKey:            strings.TrimSpace(apiKey),
		httpClient:        httpClient,
		responsesPrefixes: []string{"gpt-5"},
		maxRetries:        DefaultMaxRetries,
		initialBackoff:    DefaultInitialBackoff,
		sleep:             time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type apiKeyCtxKey struct{}

// WithRequestAPIKey lets one request override the configured credential,
// e.g. a bearer token forwarded from the caller.
func WithRequestAPIKey(ctx context.Context, apiKey string) context.Context {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyCtxKey{}, apiKey)
}

func RequestAPIKeyFromContext(ctx context.Context) string {
	value, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return value
}

func (c *Client) resolveAPIKey(ctx context.Context) string {
	if key := RequestAPIKeyFromContext(ctx); key != "" {
		return key
	}
	return c.apiKey
}

// CheckModels probes the upstream model listing, used as a readiness check.
func (c *Client) CheckModels(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.resolveAPIKey(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSummaryBytes))
		return &Error{StatusCode: resp.StatusCode, Summary: summarizeErrorBody(body, resp.Header)}
	}
	return nil
}

// UsesResponsesAPI reports whether the model is served by the structured
// "responses" protocol, which ignores the numeric temperature parameter.
func (c *Client) UsesResponsesAPI(model string) bool {
	target := strings.ToLower(strings.TrimSpace(model))
	if target == "" {
		return false
	}
	for _, prefix := range c.responsesPrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// TemperatureHint renders the creativity note appended to system prompts
// when the target protocol drops the numeric temperature, so intent survives
// the missing parameter. Returns "" when the model honors temperature.
func (c *Client) TemperatureHint(model string, temperature float64) string {
	if !c.UsesResponsesAPI(model) {
		return ""
	}
	level := "balanced"
	switch {
	case temperature <= 0.35:
		level = "precision / low randomness"
	case temperature >= 0.75:
		level = "bold / high creativity"
	}
	return fmt.Sprintf("\n\n[Legacy temperature emulation]\n"+
		"- Treat creativity strength as %s (legacy temperature %.2f).\n"+
		"- Mirror the randomness level implied above even though the API ignores `temperature`.\n"+
		"- Lower values mean deterministic phrasing; higher values allow freer rewording and bolder stylistic exploration.",
		level, temperature)
}

type payloadPlan struct {
	endpoint string
	kind     string
	body     []byte
}

func (c *Client) composePayload(req Request) (payloadPlan, error) {
	systemPrompt := req.SystemPrompt + c.TemperatureHint(req.Model, req.Temperature)

	payload := map[string]any{"model": req.Model}
	plan := payloadPlan{}
	if c.UsesResponsesAPI(req.Model) {
		payload["input"] = []map[string]any{
			responsesBlock("system", systemPrompt),
			responsesBlock("user", req.UserPrompt),
		}
		if req.MaxOutputTokens > 0 {
			payload["max_output_tokens"] = req.MaxOutputTokens
		}
		plan.endpoint = c.baseURL + "/responses"
		plan.kind = "responses"
	} else {
		payload["messages"] = []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": req.UserPrompt},
		}
		if req.MaxOutputTokens > 0 {
			payload["max_completion_tokens"] = req.MaxOutputTokens
		}
		if req.IncludeTemperature {
			payload["temperature"] = req.Temperature
		}
		plan.endpoint = c.baseURL + "/chat/completions"
		plan.kind = "chat"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return payloadPlan{}, err
	}
	plan.body = body
	return plan, nil
}

func responsesBlock(role, text string) map[string]any {
	return map[string]any{
		"role": role,
		"content": []map[string]any{
			{"type": "input_text", "text": text},
		},
	}
}

// Generate sends the request, retrying transient failures (HTTP 429, 5xx,
// and network errors) up to the retry budget with exponential backoff. The
// backoff sleep blocks the calling goroutine only. On failure the returned
// error is an *Error carrying status, summary, and retries consumed.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	plan, err := c.composePayload(req)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	retryCount := 0
	backoff := c.initialBackoff
	lastStatus := 0
	defer func() { c.observe(plan.kind, lastStatus, retryCount, time.Since(started)) }()

	for {
		status, body, header, err := c.post(ctx, plan.endpoint, plan.body)
		lastStatus = status
		if err != nil {
			summary := err.Error()
			c.logFailure(req.Model, plan.endpoint, status, summary, retryCount)
			if retryCount < c.maxRetries && ctx.Err() == nil {
				retryCount++
				c.sleep(backoff)
				backoff *= 2
				continue
			}
			return Result{RetryCount: retryCount, StatusCode: status},
				&Error{StatusCode: status, Summary: summary, RetryCount: retryCount}
		}

		if status == http.StatusOK {
			text, finishReason, parseErr := parseResponse(plan.kind, body)
			if parseErr != nil {
				return Result{RetryCount: retryCount, StatusCode: status},
					&Error{StatusCode: status, Summary: parseErr.Error(), RetryCount: retryCount}
			}
			return Result{
				Text:         text,
				FinishReason: finishReason,
				Raw:          json.RawMessage(body),
				RetryCount:   retryCount,
				StatusCode:   status,
			}, nil
		}

		summary := summarizeErrorBody(body, header)
		c.logFailure(req.Model, plan.endpoint, status, summary, retryCount)
		if (status == http.StatusTooManyRequests || status >= 500) && retryCount < c.maxRetries && ctx.Err() == nil {
			retryCount++
			c.sleep(backoff)
			backoff *= 2
			continue
		}
		return Result{RetryCount: retryCount, StatusCode: status},
			&Error{StatusCode: status, Summary: summary, RetryCount: retryCount}
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (int, []byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.resolveAPIKey(ctx))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, resp.Header, err
	}
	return resp.StatusCode, respBody, resp.Header, nil
}

func (c *Client) observe(endpoint string, status, retries int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, retries, duration)
	}
}

func (c *Client) logFailure(model, endpoint string, status int, summary string, retryCount int) {
	if c.logger == nil {
		return
	}
	c.logger.Error("generation_request_failed",
		"model", model,
		"endpoint", endpoint,
		"status", status,
		"retries", retryCount,
		"message", summary,
	)
}

func parseResponse(kind string, data []byte) (string, string, error) {
	if kind == "responses" {
		return parseResponsesBody(data)
	}
	return parseChatBody(data)
}

func parseResponsesBody(data []byte) (string, string, error) {
	var parsed struct {
		Output []struct {
			Type       string `json:"type"`
			StopReason string `json:"stop_reason"`
			Content    []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		OutputText json.RawMessage `json:"output_text"`
		Status     string          `json:"status"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", "", fmt.Errorf("invalid responses payload: %w", err)
	}

	var texts []string
	finishReason := ""
	for _, item := range parsed.Output {
		if finishReason == "" {
			finishReason = item.StopReason
		}
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "text" || content.Type == "output_text" {
				texts = append(texts, content.Text)
			}
		}
	}
	if len(texts) == 0 && len(parsed.OutputText) > 0 {
		var asList []string
		var asText string
		if err := json.Unmarshal(parsed.OutputText, &asList); err == nil {
			texts = append(texts, strings.Join(asList, ""))
		} else if err := json.Unmarshal(parsed.OutputText, &asText); err == nil {
			texts = append(texts, asText)
		}
	}
	if finishReason == "" {
		finishReason = parsed.Status
	}
	return strings.TrimSpace(strings.Join(texts, "")), finishReason, nil
}

func parseChatBody(data []byte) (string, string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", "", fmt.Errorf("invalid chat completion payload: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", "", nil
	}
	choice := parsed.Choices[0]
	return strings.TrimSpace(choice.Message.Content), choice.FinishReason, nil
}

// summarizeErrorBody condenses an upstream error response into the short
// form shown to users and kept in logs: message, machine code, type, and
// the request id header when present. Non-JSON bodies are truncated.
func summarizeErrorBody(body []byte, header http.Header) string {
	summary := ""
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err == nil {
		errSection := parsed
		if rawErr, ok := parsed["error"]; ok {
			var nested map[string]json.RawMessage
			if json.Unmarshal(rawErr, &nested) == nil {
				errSection = nested
			}
		}
		var parts []string
		if msg := jsonString(errSection["message"]); msg != "" {
			parts = append(parts, fmt.Sprintf("message='%s'", msg))
		}
		if code := jsonString(errSection["code"]); code != "" {
			parts = append(parts, "code="+code)
		}
		if typ := jsonString(errSection["type"]); typ != "" {
			parts = append(parts, "type="+typ)
		}
		summary = strings.Join(parts, ", ")
	}
	if summary == "" {
		raw := strings.TrimSpace(string(body))
		if len(raw) > maxErrorSummaryBytes {
			raw = raw[:maxErrorSummaryBytes] + "...(truncated)"
		}
		summary = raw
	}

	requestID := header.Get("x-request-id")
	if requestID == "" {
		requestID = header.Get("x-requestid")
	}
	if requestID != "" {
		return fmt.Sprintf("%s (request_id=%s)", summary, requestID)
	}
	return summary
}

func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
