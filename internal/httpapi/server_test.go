package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/generate"
	"promptforge/internal/model"
	"promptforge/internal/upstream/openai"
)

type fakeGenerate struct {
	outcome generate.Outcome

	lastOperation string
	lastCtx       context.Context
	lastChaosIn   generate.ChaosMixInput
	lastWorldIn   generate.WorldBuildingInput
	lastStoryIn   generate.StoryboardInput
}

func (f *fakeGenerate) LengthAdjust(ctx context.Context, in generate.LengthAdjustInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "length", ctx
	return f.outcome
}

func (f *fakeGenerate) WorldBuilding(ctx context.Context, in generate.WorldBuildingInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "world", ctx
	f.lastWorldIn = in
	return f.outcome
}

func (f *fakeGenerate) ChaosMix(ctx context.Context, in generate.ChaosMixInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "chaos", ctx
	f.lastChaosIn = in
	return f.outcome
}

func (f *fakeGenerate) Arrange(ctx context.Context, in generate.ArrangeInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "arrange", ctx
	return f.outcome
}

func (f *fakeGenerate) Fragments(ctx context.Context, in generate.FragmentsInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "fragments", ctx
	return f.outcome
}

func (f *fakeGenerate) Storyboard(ctx context.Context, in generate.StoryboardInput) generate.Outcome {
	f.lastOperation, f.lastCtx = "storyboard", ctx
	f.lastStoryIn = in
	return f.outcome
}

type fakeUpstream struct {
	err    error
	called bool
}

func (f *fakeUpstream) CheckModels(ctx context.Context) error {
	f.called = true
	return f.err
}

type fakeMetrics struct {
	httpObservations int
	repairFailures   int
	lastRoute        string
	lastStatus       int
}

func (f *fakeMetrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	f.httpObservations++
	f.lastRoute = route
	f.lastStatus = status
}

func (f *fakeMetrics) IncStoryboardRepairFailure() { f.repairFailures++ }

func testServerConfig() config.Config {
	return config.Config{
		APIKey:        "test-key",
		APIKeyEnvName: "OPENAI_API_KEY",
		DefaultModel:  "gpt-4o-mini",
		Storyboard: config.StoryboardConfig{
			DefaultDurationSec: 10,
			DefaultCutCount:    3,
			AutoMinCuts:        2,
			AutoMaxCuts:        6,
			AutoMinDuration:    1,
			AutoMaxDuration:    30,
			SafeChars:          1000,
		},
	}
}

func newTestHandler(t *testing.T, cfg config.Config, gen *fakeGenerate, up *fakeUpstream, metrics *fakeMetrics) http.Handler {
	t.Helper()
	if gen == nil {
		gen = &fakeGenerate{}
	}
	if up == nil {
		up = &fakeUpstream{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Dependencies{Generate: gen, Upstream: up}
	if metrics != nil {
		deps.Metrics = metrics
	}
	return NewServer(cfg, logger, deps)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp model.HealthResponse
	decodeBody(t, rec, &resp)
	if !resp.OK {
		t.Fatal("expected ok=true")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestReadyzProbesUpstream(t *testing.T) {
	up := &fakeUpstream{}
	handler := newTestHandler(t, testServerConfig(), nil, up, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !up.called {
		t.Fatal("expected upstream probe with configured credential")
	}
}

func TestReadyzUpstreamFailure(t *testing.T) {
	up := &fakeUpstream{err: &openai.Error{StatusCode: 503, Summary: "message='down'"}}
	handler := newTestHandler(t, testServerConfig(), nil, up, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp model.ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "not_ready" {
		t.Fatalf("error code = %q, want not_ready", resp.Error.Code)
	}
}

func TestReadyzSkipsProbeWithoutCredential(t *testing.T) {
	cfg := testServerConfig()
	cfg.APIKey = ""
	up := &fakeUpstream{err: errors.New("must not be called")}
	handler := newTestHandler(t, cfg, nil, up, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if up.called {
		t.Fatal("probe should be skipped when no credential is available")
	}
}

func TestPromptSplit(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/split",
		`{"text":"A castle on a hill --ar 16:9 --chaos 20"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.SplitResponse
	decodeBody(t, rec, &resp)
	if !resp.HasOptions {
		t.Fatal("expected has_options=true")
	}
	if resp.MainText != "A castle on a hill" {
		t.Fatalf("main_text = %q", resp.MainText)
	}
	if !strings.Contains(resp.OptionsTail, "--ar 16:9") {
		t.Fatalf("options_tail = %q", resp.OptionsTail)
	}
}

func TestPromptMetadataValidatesKey(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/metadata",
		`{"text":"hello","required_key":"other_key"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPromptMetadataExtractsBlock(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/metadata",
		`{"text":"A scene {\"content_flags\": {\"nsfw\": false}} after","required_key":"content_flags"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.MetadataResponse
	decodeBody(t, rec, &resp)
	if !resp.Found {
		t.Fatal("expected found=true")
	}
	if !strings.Contains(string(resp.Block), "content_flags") {
		t.Fatalf("block = %s", resp.Block)
	}
	if strings.Contains(resp.RemainingText, "content_flags") {
		t.Fatalf("remaining_text still carries the block: %q", resp.RemainingText)
	}
}

func TestPromptCuesDerivesAnchorsFromText(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/cues",
		`{"text":"a lone samurai walking through neon cyberpunk streets","preset_label":"Cyberpunk City","max_items":3}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.CuesResponse
	decodeBody(t, rec, &resp)
	if resp.Style != "cyberpunk" {
		t.Fatalf("style = %q, want cyberpunk", resp.Style)
	}
	if len(resp.Cues) == 0 || len(resp.Cues) > 3 {
		t.Fatalf("cues length = %d, want 1..3", len(resp.Cues))
	}
}

func TestPromptComposeFromSummary(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/compose",
		`{"summary":"a quiet village at dusk","options_tail":" --ar 16:9"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.ComposeResponse
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.Text, `"world_description"`) {
		t.Fatalf("composed text missing payload: %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "single_continuous_world") {
		t.Fatalf("composed text missing default scope: %q", resp.Text)
	}
	if !strings.HasSuffix(resp.Text, "--ar 16:9") {
		t.Fatalf("options tail not appended: %q", resp.Text)
	}
}

func TestPromptComposeRequiresCoreOrSummary(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/compose", `{"movie_tail":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateChaosDerivesFragmentsFromText(t *testing.T) {
	gen := &fakeGenerate{outcome: generate.Outcome{Text: "scene"}}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/chaos",
		`{"text":"A misty lake. Cranes take flight."}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	want := []string{"A misty lake", "Cranes take flight"}
	if len(gen.lastChaosIn.Fragments) != len(want) {
		t.Fatalf("fragments = %v, want %v", gen.lastChaosIn.Fragments, want)
	}
	for i, fragment := range want {
		if gen.lastChaosIn.Fragments[i] != fragment {
			t.Fatalf("fragments[%d] = %q, want %q", i, gen.lastChaosIn.Fragments[i], fragment)
		}
	}
}

func TestGenerateWorldKeepsCallerDetails(t *testing.T) {
	gen := &fakeGenerate{outcome: generate.Outcome{Text: "world"}}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/world",
		`{"text":"two sentences. right here.","details":["only this"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if len(gen.lastWorldIn.Details) != 1 || gen.lastWorldIn.Details[0] != "only this" {
		t.Fatalf("details overridden: %v", gen.lastWorldIn.Details)
	}
}

func TestGenerateLengthReturnsOutcome(t *testing.T) {
	gen := &fakeGenerate{outcome: generate.Outcome{Text: "adjusted", FinishReason: "stop", StatusCode: 200}}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/length",
		`{"text":"a prompt","lengthHint":"shorter"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if gen.lastOperation != "length" {
		t.Fatalf("operation = %q, want length", gen.lastOperation)
	}
	var outcome generate.Outcome
	decodeBody(t, rec, &outcome)
	if outcome.Text != "adjusted" || outcome.FinishReason != "stop" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestGenerateRequiresText(t *testing.T) {
	gen := &fakeGenerate{}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/world", `{"text":"  "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if gen.lastOperation != "" {
		t.Fatalf("dispatcher should not be called, got operation %q", gen.lastOperation)
	}
}

func TestGenerateRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/chaos",
		`{"text":"x","bogus":true}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBearerTokenReachesGenerateContext(t *testing.T) {
	gen := &fakeGenerate{outcome: generate.Outcome{Text: "ok"}}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/length",
		strings.NewReader(`{"text":"a prompt"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sk-request-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := openai.RequestAPIKeyFromContext(gen.lastCtx); got != "sk-request-key" {
		t.Fatalf("request api key = %q, want sk-request-key", got)
	}
}

func TestMalformedAuthorizationRejected(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/length",
		strings.NewReader(`{"text":"a prompt"}`))
	req.Header.Set("Authorization", "Basic dXNlcg==")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateStoryboardDetachesEmbeddedStyle(t *testing.T) {
	gen := &fakeGenerate{outcome: generate.Outcome{Text: "cuts"}}
	handler := newTestHandler(t, testServerConfig(), gen, nil, nil)

	body, _ := json.Marshal(map[string]any{
		"text": `A foggy harbor at dawn {"video_style": {"look": "noir"}}`,
	})
	rec := doJSON(t, handler, http.MethodPost, "/v1/generate/storyboard", string(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(string(gen.lastStoryIn.VideoStyle), "noir") {
		t.Fatalf("video style not detached: %s", gen.lastStoryIn.VideoStyle)
	}
	if strings.Contains(gen.lastStoryIn.Text, "video_style") {
		t.Fatalf("metadata block still in source text: %q", gen.lastStoryIn.Text)
	}
	if gen.lastStoryIn.Text != "A foggy harbor at dawn" {
		t.Fatalf("remaining text = %q", gen.lastStoryIn.Text)
	}
}

func TestStoryboardAllocateUniform(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/allocate",
		`{"total_duration_sec":10,"cut_count":3}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.StoryboardAllocateResponse
	decodeBody(t, rec, &resp)
	if resp.Template != "none" {
		t.Fatalf("template = %q, want none", resp.Template)
	}
	if len(resp.Cuts) != 3 {
		t.Fatalf("cuts = %d, want 3", len(resp.Cuts))
	}
	if resp.Cuts[2].StartSec != 6.67 {
		t.Fatalf("last start = %v, want 6.67", resp.Cuts[2].StartSec)
	}
}

func TestStoryboardAllocateAppliesModelDurations(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/allocate",
		`{"total_duration_sec":10,"cut_count":3,"model_durations":[3,3,3]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.StoryboardAllocateResponse
	decodeBody(t, rec, &resp)
	sum := 0.0
	for _, cut := range resp.Cuts {
		sum += cut.DurationSec
	}
	if math.Abs(sum-10.0) >= 0.01 {
		t.Fatalf("durations sum = %v, want 10.0", sum)
	}
}

func TestStoryboardBridge(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/bridge",
		`{"cuts":[
			{"index":1,"start_sec":0,"duration_sec":5,"description":"A knight rides across the plain. Dust trails behind."},
			{"index":2,"start_sec":5,"duration_sec":5,"description":"The castle gate opens slowly."}
		]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.StoryboardBridgeResponse
	decodeBody(t, rec, &resp)
	if !resp.ContinuityEnhanced {
		t.Fatal("expected continuity_enhanced=true")
	}
	if !strings.HasPrefix(resp.Cuts[1].Description, "Seamlessly continuing from ") {
		t.Fatalf("second cut not bridged: %q", resp.Cuts[1].Description)
	}
}

func TestStoryboardRenderFromRawText(t *testing.T) {
	metrics := &fakeMetrics{}
	handler := newTestHandler(t, testServerConfig(), nil, nil, metrics)

	raw := `Here you go:
[
  {"duration_sec": 4, "description": "Opening shot of the valley", "camera_work": "pan"},
  {"duration_sec": 6, "description": "Hero walks into frame"}
]`
	body, _ := json.Marshal(map[string]any{
		"raw_text":           raw,
		"total_duration_sec": 10,
	})
	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/render", string(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.StoryboardRenderResponse
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.JSON, `"video_prompt"`) {
		t.Fatalf("rendered JSON missing envelope: %s", resp.JSON)
	}
	if !strings.Contains(resp.JSON, "Opening shot of the valley") {
		t.Fatalf("rendered JSON missing cut description: %s", resp.JSON)
	}
	if metrics.repairFailures != 0 {
		t.Fatalf("repair failures = %d, want 0", metrics.repairFailures)
	}
}

func TestStoryboardRenderDurationlessRawText(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	raw := `[
  {"description": "Opening shot of the valley"},
  {"description": "Hero walks into frame"},
  {"description": "The gate closes behind them"}
]`
	body, _ := json.Marshal(map[string]any{
		"raw_text":           raw,
		"total_duration_sec": 10,
	})
	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/render", string(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.StoryboardRenderResponse
	decodeBody(t, rec, &resp)
	var envelope struct {
		VideoPrompt struct {
			Storyboard struct {
				Cuts []model.StoryboardCut `json:"cuts"`
			} `json:"storyboard"`
		} `json:"video_prompt"`
	}
	if err := json.Unmarshal([]byte(resp.JSON), &envelope); err != nil {
		t.Fatalf("unmarshal rendered JSON: %v", err)
	}
	cuts := envelope.VideoPrompt.Storyboard.Cuts
	if len(cuts) != 3 {
		t.Fatalf("cut count = %d, want 3", len(cuts))
	}
	sum := 0.0
	for i, cut := range cuts {
		if cut.DurationSec <= 0 {
			t.Fatalf("cut %d duration = %v, want > 0", i, cut.DurationSec)
		}
		sum += cut.DurationSec
	}
	if math.Abs(sum-10.0) >= 0.01 {
		t.Fatalf("durations sum = %v, want 10.0", sum)
	}
}

func TestStoryboardRenderNoCutData(t *testing.T) {
	metrics := &fakeMetrics{}
	handler := newTestHandler(t, testServerConfig(), nil, nil, metrics)

	rec := doJSON(t, handler, http.MethodPost, "/v1/storyboard/render",
		`{"raw_text":"sorry, I cannot produce a storyboard for that"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp model.ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "no_cut_data" {
		t.Fatalf("error code = %q, want no_cut_data", resp.Error.Code)
	}
	if metrics.repairFailures != 1 {
		t.Fatalf("repair failures = %d, want 1", metrics.repairFailures)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "client-supplied-id" {
		t.Fatalf("request id = %q, want client-supplied-id", got)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/unknown", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/prompt/split", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec2.Code)
	}
}

func TestMetricsObservedPerRequest(t *testing.T) {
	metrics := &fakeMetrics{}
	handler := newTestHandler(t, testServerConfig(), nil, nil, metrics)

	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/strip", `{"text":"x --no text"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if metrics.httpObservations != 1 {
		t.Fatalf("observations = %d, want 1", metrics.httpObservations)
	}
	if metrics.lastRoute != "/v1/prompt/strip" {
		t.Fatalf("route = %q, want /v1/prompt/strip", metrics.lastRoute)
	}
	if metrics.lastStatus != http.StatusOK {
		t.Fatalf("status label = %d, want 200", metrics.lastStatus)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	handler := newTestHandler(t, testServerConfig(), nil, nil, nil)

	big := `{"text":"` + strings.Repeat("a", maxJSONBodyBytes) + `"}`
	rec := doJSON(t, handler, http.MethodPost, "/v1/prompt/strip", big)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}
