package extraction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscan/medscan-api/internal/ai"
	"github.com/medscan/medscan-api/internal/cache"
	"github.com/medscan/medscan-api/internal/extraction"
	apperrors "github.com/medscan/medscan-api/pkg/errors"
	"github.com/medscan/medscan-api/pkg/metrics"
)

const labReport = `INFORME DE LABORATORIO CLINICO
Paciente: Juan Pérez
Médico: Dra. Ana López
Centro Diagnóstico Central
RESULTADOS
HEMOGRAMA
Hemoglobina 13,5 g/dL (12-16)
Hematocrito 40 %
Conclusión:   Sin alteraciones.  
`

// stubExtractor counts calls and returns a fixed answer.
type stubExtractor struct {
	calls    int32
	entities []ai.Entity
	err      error
	block    bool
}

func (s *stubExtractor) Extract(ctx context.Context, _ string) ([]ai.Entity, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.entities, s.err
}

func (s *stubExtractor) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ReportStructured
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventType == EventReportStructured {
		p.events = append(p.events, payload.(ReportStructured))
	}
	return p.err
}

func labEntities() []ai.Entity {
	return []ai.Entity{
		{Type: ai.EntityMisc, Word: "Analisis Clinico"},
		{Type: ai.EntityPerson, Word: "Juan Perez"},
		{Type: ai.EntityPerson, Word: "Ana Lopez"},
		{Type: ai.EntityPerson, Word: "Pedro Gomez"},
		{Type: ai.EntityOrganization, Word: "Centro Diagnostico Central"},
		{Type: ai.EntityOrganization, Word: "Otra Clinica"},
		{Type: ai.EntityMisc, Word: "HEMOGRAMA"},
		{Type: ai.EntityLocation, Word: "Caracas"},
	}
}

func TestCacheHitSkipsExtractor(t *testing.T) {
	stub := &stubExtractor{entities: labEntities()}
	svc := NewService(cache.New(cache.DefaultConfig()), nil, WithExtractor(stub))

	first := svc.StructureWithOutcome(context.Background(), labReport)
	second := svc.StructureWithOutcome(context.Background(), labReport)

	assert.Equal(t, 1, stub.Calls())
	assert.Equal(t, SourceAI, first.Source)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, cache.Key(labReport), second.Key)
}

func TestAIEntitiesAreMapped(t *testing.T) {
	stub := &stubExtractor{entities: labEntities()}
	svc := NewService(nil, nil, WithExtractor(stub))

	out := svc.StructureWithOutcome(context.Background(), labReport)
	require.Equal(t, SourceAI, out.Source)
	assert.Nil(t, out.Fallback)
	assert.Empty(t, out.FallbackReason())

	report := out.Report
	assert.Equal(t, "Analisis Clinico", report.Title)
	assert.Equal(t, "Juan Perez", report.Patient.Name)
	assert.Equal(t, "Ana Lopez", report.Medical.Clinician)
	assert.Equal(t, "Centro Diagnostico Central", report.Medical.Clinic)
	assert.Equal(t, "Sin alteraciones.", report.Conclusions)
	assert.Empty(t, report.Recommendations)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "Hemoglobina", report.Results[0].Exam)
	assert.Equal(t, 13.5, report.Results[0].Value)
	assert.Equal(t, "HEMOGRAMA", report.Results[0].Category)
	require.NotNil(t, report.Results[0].Range.Min)
	assert.Equal(t, 12.0, *report.Results[0].Range.Min)
	assert.Equal(t, "Hematocrito", report.Results[1].Exam)
	assert.Equal(t, "%", report.Results[1].Unit)
}

func TestLowScoreEntitiesAreIgnored(t *testing.T) {
	stub := &stubExtractor{entities: []ai.Entity{
		{Type: ai.EntityPerson, Word: "Juan Perez", Score: 0.2},
		{Type: ai.EntityPerson, Word: "Ana Lopez", Score: 0.95},
		{Type: ai.EntityOrganization, Word: "Otra Clinica", Score: 0.3},
		{Type: ai.EntityOrganization, Word: "Centro Diagnostico Central", Score: 0.9},
	}}
	svc := NewService(nil, nil, WithExtractor(stub), WithMinEntityScore(0.5))

	out := svc.StructureWithOutcome(context.Background(), labReport)
	require.Equal(t, SourceAI, out.Source)

	assert.Empty(t, out.Report.Patient.Name)
	assert.Equal(t, "Ana Lopez", out.Report.Medical.Clinician)
	assert.Equal(t, "Centro Diagnostico Central", out.Report.Medical.Clinic)
}

func TestFallbackMatchesRuleBasedPipeline(t *testing.T) {
	stub := &stubExtractor{err: apperrors.AIStatus(503, "model loading")}
	parser := extraction.NewParser(nil)
	svc := NewService(nil, parser, WithExtractor(stub))

	out := svc.StructureWithOutcome(context.Background(), labReport)

	assert.Equal(t, SourceRules, out.Source)
	assert.Equal(t, "ai_status", out.FallbackReason())
	assert.Equal(t, parser.Parse(labReport), out.Report)
	assert.Equal(t, 1, stub.Calls())
}

func TestFallbackReasons(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		reason string
	}{
		{name: "no extractor", reason: "ai_unavailable"},
		{name: "plain error", opts: []Option{WithExtractor(&stubExtractor{err: errors.New("dial tcp: refused")})}, reason: "ai_unavailable"},
		{name: "malformed", opts: []Option{WithExtractor(&stubExtractor{err: apperrors.AIMalformed(errors.New("bad"))})}, reason: "ai_malformed"},
		{name: "circuit open", opts: []Option{WithExtractor(&stubExtractor{err: apperrors.CircuitOpen("ai")})}, reason: "circuit_open"},
		{name: "timeout", opts: []Option{WithExtractor(&stubExtractor{block: true}), WithTimeout(10 * time.Millisecond)}, reason: "ai_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, nil, tt.opts...)
			out := svc.StructureWithOutcome(context.Background(), labReport)

			assert.Equal(t, SourceRules, out.Source)
			assert.Equal(t, tt.reason, out.FallbackReason())
			assert.Len(t, out.Report.Results, 2)
		})
	}
}

func TestEndToEndRuleBased(t *testing.T) {
	text := "Resultados\nHEMOGRAMA\nHemoglobina 13.5 g/dL (12-16)\nHematocrito 40 %\nConclusión:   Anemia descartada.  \n"
	svc := NewService(nil, nil)

	report := svc.Structure(context.Background(), text)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "Hemoglobina", report.Results[0].Exam)
	assert.Equal(t, "Hematocrito", report.Results[1].Exam)
	assert.Equal(t, "HEMOGRAMA", report.Results[1].Category)
	assert.Equal(t, "Anemia descartada.", report.Conclusions)
	assert.Empty(t, report.Recommendations)
}

func TestExpiredEntryIsReextracted(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	stub := &stubExtractor{entities: labEntities()}
	svc := NewService(cache.New(cache.Config{MaxEntries: 10, TTL: time.Hour}, cache.WithClock(clock)), nil, WithExtractor(stub))

	svc.Structure(context.Background(), labReport)
	now = now.Add(30 * time.Minute)
	svc.Structure(context.Background(), labReport)
	assert.Equal(t, 1, stub.Calls())

	now = now.Add(30 * time.Minute)
	out := svc.StructureWithOutcome(context.Background(), labReport)
	assert.Equal(t, 2, stub.Calls())
	assert.Equal(t, SourceAI, out.Source)
}

func TestEmptyTextStillReturnsReport(t *testing.T) {
	svc := NewService(nil, nil, WithExtractor(&stubExtractor{entities: []ai.Entity{}}))

	report := svc.Structure(context.Background(), "")

	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Title)
}

func TestPublishesEventWithoutContent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(nil, nil, WithPublisher(pub), WithExtractor(&stubExtractor{err: apperrors.AIStatus(500, "")}))

	svc.Structure(context.Background(), labReport)
	svc.Structure(context.Background(), labReport)

	require.Len(t, pub.events, 1)
	assert.Equal(t, ReportStructured{
		Key:            cache.Key(labReport),
		Source:         SourceRules,
		ExamCount:      2,
		FallbackReason: "ai_status",
	}, pub.events[0])
}

func TestPublishFailureIsIgnored(t *testing.T) {
	m := metrics.New("test", nil)
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc := NewService(nil, nil, WithPublisher(pub), WithMetrics(m))

	report := svc.Structure(context.Background(), labReport)

	assert.Len(t, report.Results, 2)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsStructured.WithLabelValues("rules")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("ai_unavailable")))
}

func TestConcurrentStructure(t *testing.T) {
	stub := &stubExtractor{entities: labEntities()}
	c := cache.New(cache.DefaultConfig())
	svc := NewService(c, nil, WithExtractor(stub))

	const workers = 16
	reports := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = svc.StructureWithOutcome(context.Background(), labReport)
		}(i)
	}
	wg.Wait()

	for _, out := range reports {
		assert.Equal(t, reports[0].Report, out.Report)
	}
	assert.Equal(t, 1, c.Len())
	assert.GreaterOrEqual(t, stub.Calls(), 1)
}
