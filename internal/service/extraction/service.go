// Package extraction coordinates report structuring: cache lookup, the AI
// extractor and the rule-based fallback.
package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscan/medscan-api/internal/ai"
	"github.com/medscan/medscan-api/internal/cache"
	"github.com/medscan/medscan-api/internal/extraction"
	"github.com/medscan/medscan-api/internal/model"
	apperrors "github.com/medscan/medscan-api/pkg/errors"
	"github.com/medscan/medscan-api/pkg/messaging"
	"github.com/medscan/medscan-api/pkg/metrics"
)

// EventReportStructured is published after every fresh structuring.
const EventReportStructured = "report.structured"

// Source names the path that produced a report.
type Source string

const (
	SourceCache Source = "cache"
	SourceAI    Source = "ai"
	SourceRules Source = "rules"
)

var errAIDisabled = errors.New("ai extractor disabled")

// Outcome is the result of a structuring call. It always carries a report.
type Outcome struct {
	Report model.StructuredReport
	Source Source
	Key    string
	// Fallback is the AI failure that sent the call down the rule-based path.
	Fallback error
}

// FallbackReason returns the failure code name, or "" when no fallback happened.
func (o Outcome) FallbackReason() string {
	if o.Fallback == nil {
		return ""
	}
	return apperrors.CodeOf(o.Fallback).String()
}

// ReportStructured is the event payload. It never contains report content.
type ReportStructured struct {
	Key            string `json:"key"`
	Source         Source `json:"source"`
	ExamCount      int    `json:"exam_count"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

type Structurer interface {
	Structure(ctx context.Context, raw string) model.StructuredReport
	StructureWithOutcome(ctx context.Context, raw string) Outcome
}

type Service struct {
	cache     *cache.ReportCache
	parser    *extraction.Parser
	extractor ai.Extractor
	timeout   time.Duration
	minScore  float64
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Option func(*Service)

// WithExtractor sets the AI extractor. Without one every call uses the rule-based path.
func WithExtractor(e ai.Extractor) Option {
	return func(s *Service) {
		s.extractor = e
	}
}

// WithTimeout bounds each AI call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithMinEntityScore drops AI entities scored below score before they are mapped.
func WithMinEntityScore(score float64) Option {
	return func(s *Service) {
		s.minScore = score
	}
}

func WithPublisher(p messaging.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(reportCache *cache.ReportCache, parser *extraction.Parser, opts ...Option) *Service {
	if parser == nil {
		parser = extraction.NewParser(nil)
	}
	if reportCache == nil {
		reportCache = cache.New(cache.DefaultConfig())
	}

	s := &Service{
		cache:     reportCache,
		parser:    parser,
		timeout:   ai.DefaultTimeout,
		publisher: messaging.NopPublisher{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Structure returns the best-effort report for raw. It never fails.
func (s *Service) Structure(ctx context.Context, raw string) model.StructuredReport {
	return s.StructureWithOutcome(ctx, raw).Report
}

// StructureWithOutcome is Structure plus the path taken and, for fallbacks, why.
func (s *Service) StructureWithOutcome(ctx context.Context, raw string) Outcome {
	key := cache.Key(raw)
	logger := s.logger.With().Str("key", key).Int("length", len(raw)).Logger()

	if report, ok := s.cache.Get(key); ok {
		logger.Debug().Msg("report served from cache")
		s.record(SourceCache, nil, report)
		return Outcome{Report: report, Source: SourceCache, Key: key}
	}

	out := Outcome{Key: key}

	report, err := s.structureWithAI(ctx, raw)
	if err != nil {
		logger.Warn().Err(err).Str("reason", apperrors.CodeOf(err).String()).Msg("ai extraction failed, using rules")
		out.Report = s.parser.Parse(raw)
		out.Source = SourceRules
		out.Fallback = err
	} else {
		out.Report = report
		out.Source = SourceAI
	}

	s.cache.Set(key, out.Report)
	s.record(out.Source, out.Fallback, out.Report)
	s.publish(ctx, logger, out)

	logger.Info().
		Str("source", string(out.Source)).
		Int("exams", len(out.Report.Results)).
		Msg("report structured")

	return out
}

func (s *Service) structureWithAI(ctx context.Context, raw string) (model.StructuredReport, error) {
	if s.extractor == nil {
		return model.StructuredReport{}, apperrors.AIUnavailable(errAIDisabled)
	}

	normalized := extraction.Normalize(raw)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entities, err := s.extractor.Extract(callCtx, normalized)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrUnknown {
			err = classify(callCtx, err)
		}
		return model.StructuredReport{}, err
	}

	return mapEntities(s.parser, normalized, entities, s.minScore), nil
}

// classify gives a code to errors from extractors that do not return AppErrors.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.AITimeout(err)
	}
	return apperrors.AIUnavailable(err)
}

func (s *Service) record(source Source, fallback error, report model.StructuredReport) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReportsStructured.WithLabelValues(string(source)).Inc()
	if source == SourceCache {
		return
	}
	s.metrics.ExamsPerReport.Observe(float64(len(report.Results)))
	if fallback != nil {
		s.metrics.Fallbacks.WithLabelValues(apperrors.CodeOf(fallback).String()).Inc()
	}
}

func (s *Service) publish(ctx context.Context, logger zerolog.Logger, out Outcome) {
	event := ReportStructured{
		Key:            out.Key,
		Source:         out.Source,
		ExamCount:      len(out.Report.Results),
		FallbackReason: out.FallbackReason(),
	}

	if err := s.publisher.Publish(ctx, EventReportStructured, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish report event")
	}
}
