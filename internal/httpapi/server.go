package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/generate"
	"promptforge/internal/model"
	"promptforge/internal/prompttext"
	"promptforge/internal/storyboard"
	"promptforge/internal/upstream/openai"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type GenerateService interface {
	LengthAdjust(ctx context.Context, in generate.LengthAdjustInput) generate.Outcome
	WorldBuilding(ctx context.Context, in generate.WorldBuildingInput) generate.Outcome
	ChaosMix(ctx context.Context, in generate.ChaosMixInput) generate.Outcome
	Arrange(ctx context.Context, in generate.ArrangeInput) generate.Outcome
	Fragments(ctx context.Context, in generate.FragmentsInput) generate.Outcome
	Storyboard(ctx context.Context, in generate.StoryboardInput) generate.Outcome
}

type UpstreamChecker interface {
	CheckModels(ctx context.Context) error
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
	IncStoryboardRepairFailure()
}

type Dependencies struct {
	Generate       GenerateService
	Upstream       UpstreamChecker
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	generate     GenerateService
	upstream     UpstreamChecker
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
	maxJSONBodyBytes = 1 << 20
)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Generate == nil || deps.Upstream == nil {
		panic("httpapi: generate and upstream dependencies are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		generate:     deps.Generate,
		upstream:     deps.Upstream,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.authMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/prompt", func(r chi.Router) {
			r.Post("/split", s.handlePromptSplit)
			r.Post("/strip", s.handlePromptStrip)
			r.Post("/inherit", s.handlePromptInherit)
			r.Post("/metadata", s.handlePromptMetadata)
			r.Post("/anchors", s.handlePromptAnchors)
			r.Post("/cues", s.handlePromptCues)
			r.Post("/compose", s.handlePromptCompose)
		})
		r.Route("/generate", func(r chi.Router) {
			r.Post("/length", s.handleGenerateLength)
			r.Post("/world", s.handleGenerateWorld)
			r.Post("/chaos", s.handleGenerateChaos)
			r.Post("/arrange", s.handleGenerateArrange)
			r.Post("/fragments", s.handleGenerateFragments)
			r.Post("/storyboard", s.handleGenerateStoryboard)
		})
		r.Route("/storyboard", func(r chi.Router) {
			r.Post("/allocate", s.handleStoryboardAllocate)
			r.Post("/bridge", s.handleStoryboardBridge)
			r.Post("/render", s.handleStoryboardRender)
		})
	})

	return r
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{OK: true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MissingCredential() && openai.RequestAPIKeyFromContext(r.Context()) == "" {
		writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: "PromptForge"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.upstream.CheckModels(ctx); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_ready", "upstream check failed", detailsForError(err))
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: "PromptForge"})
}

func (s *server) handlePromptSplit(w http.ResponseWriter, r *http.Request) {
	var req model.PromptTextRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	mainText, tail, ok := prompttext.SplitOptions(req.Text)
	writeJSON(w, http.StatusOK, model.SplitResponse{MainText: mainText, OptionsTail: tail, HasOptions: ok})
}

func (s *server) handlePromptStrip(w http.ResponseWriter, r *http.Request) {
	var req model.PromptTextRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, model.StripResponse{Text: prompttext.StripOptions(req.Text)})
}

func (s *server) handlePromptInherit(w http.ResponseWriter, r *http.Request) {
	var req model.InheritRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, model.InheritResponse{Text: prompttext.InheritOptions(req.Original, req.Candidate)})
}

func (s *server) handlePromptMetadata(w http.ResponseWriter, r *http.Request) {
	var req model.MetadataRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	key := req.RequiredKey
	if key == "" {
		key = prompttext.ContentFlagsKey
	}
	if key != prompttext.ContentFlagsKey && key != prompttext.VideoStyleKey {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("required_key must be %q or %q", prompttext.ContentFlagsKey, prompttext.VideoStyleKey), nil)
		return
	}
	remaining, block := prompttext.DetachMetadataBlock(req.Text, key)
	resp := model.MetadataResponse{RemainingText: remaining, Found: block != ""}
	if block != "" {
		resp.Block = json.RawMessage(block)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handlePromptAnchors(w http.ResponseWriter, r *http.Request) {
	var req model.AnchorsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	maxTerms := req.MaxTerms
	if maxTerms <= 0 {
		maxTerms = 8
	}
	anchors := prompttext.ExtractAnchorTerms(req.Text, maxTerms)
	if anchors == nil {
		anchors = []string{}
	}
	writeJSON(w, http.StatusOK, model.AnchorsResponse{Anchors: anchors})
}

func (s *server) handlePromptCues(w http.ResponseWriter, r *http.Request) {
	var req model.CuesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	anchors := req.Anchors
	if len(anchors) == 0 && req.Text != "" {
		anchors = prompttext.ExtractAnchorTerms(req.Text, 8)
	}
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = 5
	}
	cues := prompttext.GenerateHybridCues(anchors, req.PresetLabel, req.Guidance, maxItems)
	if cues == nil {
		cues = []string{}
	}
	writeJSON(w, http.StatusOK, model.CuesResponse{
		Style: prompttext.ClassifyStyle(req.PresetLabel, req.Guidance),
		Cues:  cues,
	})
}

// handlePromptCompose joins the movie-prompt parts. Callers either supply
// the core JSON directly or a plain summary that gets wrapped in the
// world_description payload first.
func (s *server) handlePromptCompose(w http.ResponseWriter, r *http.Request) {
	var req model.ComposeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	core := req.CoreJSON
	if core == "" && strings.TrimSpace(req.Summary) != "" {
		scope := req.Scope
		if scope == "" {
			scope = "single_continuous_world"
		}
		key := req.Key
		if key == "" {
			key = "world_description"
		}
		core = prompttext.BuildMovieJSONPayload(req.Summary, scope, key)
	}
	if core == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "core_json or summary is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, model.ComposeResponse{
		Text: prompttext.ComposeMoviePrompt(core, req.MovieTail, req.FlagsTail, req.OptionsTail),
	})
}

func (s *server) handleGenerateLength(w http.ResponseWriter, r *http.Request) {
	var in generate.LengthAdjustInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "text is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.generate.LengthAdjust(r.Context(), in))
}

func (s *server) handleGenerateWorld(w http.ResponseWriter, r *http.Request) {
	var in generate.WorldBuildingInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "text is required", nil)
		return
	}
	if len(in.Details) == 0 {
		in.Details = prompttext.SentenceDetails(in.Text)
	}
	writeJSON(w, http.StatusOK, s.generate.WorldBuilding(r.Context(), in))
}

func (s *server) handleGenerateChaos(w http.ResponseWriter, r *http.Request) {
	var in generate.ChaosMixInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "text is required", nil)
		return
	}
	if len(in.Fragments) == 0 {
		in.Fragments = prompttext.SentenceDetails(in.Text)
	}
	writeJSON(w, http.StatusOK, s.generate.ChaosMix(r.Context(), in))
}

func (s *server) handleGenerateArrange(w http.ResponseWriter, r *http.Request) {
	var in generate.ArrangeInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "text is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.generate.Arrange(r.Context(), in))
}

func (s *server) handleGenerateFragments(w http.ResponseWriter, r *http.Request) {
	var in generate.FragmentsInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, s.generate.Fragments(r.Context(), in))
}

func (s *server) handleGenerateStoryboard(w http.ResponseWriter, r *http.Request) {
	var in generate.StoryboardInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "text is required", nil)
		return
	}
	// Style metadata embedded in the prompt text becomes context rather than
	// part of the source description.
	if len(in.VideoStyle) == 0 && len(in.ContentFlags) == 0 {
		meta := storyboard.ExtractPromptMetadata(in.Text)
		if len(meta.VideoStyle) > 0 || len(meta.ContentFlags) > 0 {
			in.VideoStyle = meta.VideoStyle
			in.ContentFlags = meta.ContentFlags
			in.Text = meta.Remaining
		}
	}
	writeJSON(w, http.StatusOK, s.generate.Storyboard(r.Context(), in))
}

func (s *server) handleStoryboardAllocate(w http.ResponseWriter, r *http.Request) {
	var req model.StoryboardAllocateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.TotalDurationSec <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "total_duration_sec must be > 0", nil)
		return
	}
	template := req.Template
	if template == "" {
		template = "none"
	}
	cutCount := req.CutCount
	if cutCount <= 0 {
		cutCount = s.cfg.Storyboard.DefaultCutCount
	}

	cuts := storyboard.CutsFromTemplate(template, req.TotalDurationSec, cutCount)
	if len(req.ModelDurations) > 0 {
		storyboard.ApplyModelDurations(cuts, req.ModelDurations, req.TotalDurationSec)
	}

	writeJSON(w, http.StatusOK, model.StoryboardAllocateResponse{
		Template:         storyboard.TemplateByID(template).ID,
		TotalDurationSec: req.TotalDurationSec,
		Cuts:             fromStoryboardCuts(cuts),
	})
}

func (s *server) handleStoryboardBridge(w http.ResponseWriter, r *http.Request) {
	var req model.StoryboardBridgeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Cuts) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "cuts are required", nil)
		return
	}
	cuts := toStoryboardCuts(req.Cuts)
	changed := storyboard.EnhanceContinuity(cuts)
	writeJSON(w, http.StatusOK, model.StoryboardBridgeResponse{
		Cuts:               fromStoryboardCuts(cuts),
		ContinuityEnhanced: changed,
	})
}

func (s *server) handleStoryboardRender(w http.ResponseWriter, r *http.Request) {
	var req model.StoryboardRenderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var cuts []storyboard.Cut
	total := req.TotalDurationSec
	switch {
	case len(req.Cuts) > 0:
		cuts = toStoryboardCuts(req.Cuts)
	case strings.TrimSpace(req.RawText) != "":
		parsedTotal, parsed, err := storyboard.ParseLLMStoryboard(req.RawText)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncStoryboardRepairFailure()
			}
			s.writeError(w, r, http.StatusUnprocessableEntity, "no_cut_data",
				"no valid cut data in generation result", nil)
			return
		}
		cuts = parsed
		if total <= 0 {
			total = parsedTotal
		}
	default:
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "cuts or raw_text is required", nil)
		return
	}

	if total <= 0 {
		total = s.cfg.Storyboard.DefaultDurationSec
	}
	durations := make([]float64, len(cuts))
	hasDuration := false
	for i, cut := range cuts {
		durations[i] = cut.DurationSec
		if cut.DurationSec > 0 {
			hasDuration = true
		}
	}
	// Model output that omits durations entirely gets a uniform split.
	if !hasDuration {
		perCut := total / float64(len(cuts))
		for i := range durations {
			durations[i] = perCut
		}
	}
	storyboard.ApplyModelDurations(cuts, durations, total)

	continuityEnhanced := req.ContinuityEnhanced
	if req.EnhanceContinuity {
		if storyboard.EnhanceContinuity(cuts) {
			continuityEnhanced = true
		}
	}

	template := req.Template
	if template == "" {
		template = "none"
	}
	rendered, err := storyboard.BuildJSON(cuts, total, template, req.VideoStyle, req.ContentFlags, continuityEnhanced)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "storyboard rendering failed", detailsForError(err))
		return
	}
	writeJSON(w, http.StatusOK, model.StoryboardRenderResponse{JSON: rendered})
}

func toStoryboardCuts(in []model.StoryboardCut) []storyboard.Cut {
	out := make([]storyboard.Cut, 0, len(in))
	for _, c := range in {
		out = append(out, storyboard.Cut{
			Index:              c.Index,
			StartSec:           c.StartSec,
			DurationSec:        c.DurationSec,
			Description:        c.Description,
			CameraWork:         c.CameraWork,
			Characters:         c.Characters,
			IsImagePlaceholder: c.IsImagePlaceholder,
		})
	}
	return out
}

func fromStoryboardCuts(in []storyboard.Cut) []model.StoryboardCut {
	out := make([]model.StoryboardCut, 0, len(in))
	for _, c := range in {
		out = append(out, model.StoryboardCut{
			Index:              c.Index,
			StartSec:           c.StartSec,
			DurationSec:        c.DurationSec,
			Description:        c.Description,
			CameraWork:         c.CameraWork,
			Characters:         c.Characters,
			IsImagePlaceholder: c.IsImagePlaceholder,
		})
	}
	return out
}

func (s *server) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() { _ = r.Body.Close() }()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		s.handleJSONDecodeError(w, r, err)
		return false
	}
	if err := ensureBodyFullyConsumed(decoder); err != nil {
		s.handleJSONDecodeError(w, r, err)
		return false
	}
	return true
}

func (s *server) handleJSONDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "JSON body too large", nil)
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:     model.APIError{Code: code, Message: message, Details: details},
		RequestID: requestIDFromContext(r.Context()),
	})
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware accepts a caller-supplied bearer token as a per-request
// upstream credential. Generation endpoints require either that token or
// the configured environment credential; text-processing endpoints stay
// open since they never reach the network.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, hasHeader, ok := extractBearerToken(r.Header.Get("Authorization"))
		if hasHeader && !ok {
			s.writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authorization must be Bearer <api_key>", nil)
			return
		}
		if token != "" {
			r = r.WithContext(openai.WithRequestAPIKey(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func ensureBodyFullyConsumed(decoder *json.Decoder) error {
	var extra any
	if err := decoder.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("multiple JSON values")
		}
		return err
	}
	return nil
}

func requestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContext).(string)
	return value
}

func extractBearerToken(header string) (token string, hasHeader bool, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false, true
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", true, false
	}
	token = strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", true, false
	}
	return token, true, true
}

func newRequestID() string {
	return uuid.NewString()
}

func detailsForError(err error) map[string]any {
	if err == nil {
		return nil
	}
	details := map[string]any{"error": err.Error()}
	var upstreamErr *openai.Error
	if errors.As(err, &upstreamErr) {
		details["upstream_status"] = upstreamErr.StatusCode
		if upstreamErr.Summary != "" {
			details["upstream_summary"] = upstreamErr.Summary
		}
	}
	return details
}
