// Package chat answers one question against a report by dispatching it to a
// greeting, overview or retrieval-backed branch.
package chat

import (
	"context"
	"strings"
	"time"

	"balance-sheet-rag/internal/classifier"
	"balance-sheet-rag/internal/llm"
	"balance-sheet-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// MetricStore reads metric tables and display names for a scope.
type MetricStore interface {
	MetricsByYear(ctx context.Context, scope models.Scope, names []string, limitPerMetric int) (models.MetricsByYear, error)
	ScopeName(ctx context.Context, scope models.Scope) (string, error)
}

// Retriever returns the passages of a document most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, documentID int64, question string, topK int) []string
}

// Generator produces a text completion. Provider errors come back as text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) string
}

// ChartPlanner decides what, if anything, to chart.
type ChartPlanner interface {
	Plan(ctx context.Context, question string, metrics models.MetricsByYear) models.ChartPlan
}

// ChartBuilder turns a plan into renderable data.
type ChartBuilder interface {
	Build(plan models.ChartPlan, metrics models.MetricsByYear) *models.ChartData
}

// Options tunes the query pipeline.
type Options struct {
	TopK        int
	MetricYears int
	// VisualKeywords gate the chart pipeline: without one of them no chart is returned.
	VisualKeywords []string
	Rules          classifier.Rules
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		TopK:           10,
		MetricYears:    3,
		VisualKeywords: []string{"show", "plot", "graph", "chart", "visualize", "visualise", "draw", "diagram"},
		Rules:          classifier.DefaultRules(),
	}
}

// Service answers questions about one report at a time
type Service struct {
	metrics   MetricStore
	retriever Retriever
	gen       Generator
	planner   ChartPlanner
	builder   ChartBuilder
	opts      Options
}

// NewService wires the query pipeline.
func NewService(metrics MetricStore, retriever Retriever, gen Generator, planner ChartPlanner, builder ChartBuilder, opts Options) *Service {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.MetricYears <= 0 {
		opts.MetricYears = def.MetricYears
	}
	if opts.VisualKeywords == nil {
		opts.VisualKeywords = def.VisualKeywords
	}
	if opts.Rules.Greetings == nil {
		opts.Rules = def.Rules
	}
	return &Service{
		metrics:   metrics,
		retriever: retriever,
		gen:       gen,
		planner:   planner,
		builder:   builder,
		opts:      opts,
	}
}

// Query answers the request. It never fails: missing data or unavailable
// services degrade the answer instead.
func (s *Service) Query(ctx context.Context, req models.QueryRequest) models.Response {
	start := time.Now()
	kind := s.opts.Rules.Classify(req.Question)

	var resp models.Response
	switch kind {
	case classifier.Greeting:
		resp = s.greet(ctx, req)
	case classifier.Overview:
		resp = s.overview(ctx, req)
	default:
		resp = s.substantive(ctx, req)
	}

	log.Info().
		Stringer("kind", kind).
		Int64("document_id", req.Scope.DocumentID).
		Int64("company_id", req.Scope.CompanyID).
		Bool("chart", resp.ChartData != nil).
		Dur("elapsed", time.Since(start)).
		Msg("query processed")

	return resp
}

func (s *Service) greet(ctx context.Context, req models.QueryRequest) models.Response {
	return models.Response{Answer: classifier.GreetingAnswer(s.scopeName(ctx, req.Scope))}
}

func (s *Service) overview(ctx context.Context, req models.QueryRequest) models.Response {
	metrics := s.loadMetrics(ctx, req.Scope)
	return models.Response{Answer: classifier.Summarize(req.Role, s.scopeName(ctx, req.Scope), metrics)}
}

func (s *Service) substantive(ctx context.Context, req models.QueryRequest) models.Response {
	metrics := s.loadMetrics(ctx, req.Scope)
	company := s.scopeName(ctx, req.Scope)

	var passages []string
	if req.Scope.IsDocument() {
		passages = s.retriever.Retrieve(ctx, req.Scope.DocumentID, req.Question, s.opts.TopK)
	}

	answer := s.gen.Generate(ctx,
		llm.SystemPrompt(req.Role),
		llm.AnswerPrompt(company, req.Role, req.Question, metrics, passages))

	resp := models.Response{Answer: strings.TrimSpace(answer)}

	if len(metrics) == 0 || !s.wantsVisual(req.Question) {
		return resp
	}

	plan := s.planner.Plan(ctx, req.Question, metrics)
	if !plan.WantsChart || plan.ChartType == models.ChartNone {
		return resp
	}
	resp.ChartData = s.builder.Build(plan, metrics)
	return resp
}

// wantsVisual reports whether the question explicitly asks for a visual.
func (s *Service) wantsVisual(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range s.opts.VisualKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func (s *Service) loadMetrics(ctx context.Context, scope models.Scope) models.MetricsByYear {
	metrics, err := s.metrics.MetricsByYear(ctx, scope, models.MetricNames, s.opts.MetricYears)
	if err != nil {
		log.Error().Err(err).Int64("document_id", scope.DocumentID).Int64("company_id", scope.CompanyID).
			Msg("failed to load metrics")
		return models.MetricsByYear{}
	}
	return metrics
}

func (s *Service) scopeName(ctx context.Context, scope models.Scope) string {
	name, err := s.metrics.ScopeName(ctx, scope)
	if err != nil {
		log.Debug().Err(err).Msg("no display name for scope")
		return ""
	}
	return name
}
