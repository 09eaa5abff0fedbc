// Package enhance composes body enhancers into the per-page content
// pipeline.
//
// A Body is the parsed markup of one page: the ordered top-level nodes of its
// content fragment. Enhancers are applied left to right, each consuming the
// previous stage's output. The pipeline deep-clones its input before the
// first stage, so callers observe enhancement as a pure function: the same
// Body and the same enhancer configuration always produce the same result,
// and the caller's tree is never mutated.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/marstrand/bodywork/internal/htmlx"
)

const instrumentationName = "github.com/marstrand/bodywork/enhance"

// Body is an ordered sequence of markup nodes forming one page's content.
type Body []*html.Node

// Enhancer transforms a page body. Implementations receive the pipeline's
// working copy and may rewrite it in place or return a new sequence; they
// must not retain the body past the call, and must pass unmatched content
// through untouched. An empty body is valid input and yields an empty body.
type Enhancer interface {
	// Name identifies the stage in errors, logs, metrics and spans.
	Name() string

	// Enhance returns the transformed body. Any error aborts the page.
	Enhance(ctx context.Context, body Body) (Body, error)
}

// StageError wraps an enhancer failure with the stage that raised it. The
// cause is preserved for errors.Is/As; the pipeline adds no recovery, retry
// or partial results on top (enhancement failures are the page author's or
// environment's problem to fix, not ours to paper over).
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("enhance stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Pipeline applies a fixed, ordered list of enhancers to page bodies. The
// stage list is immutable after New; order is auditable via Stages.
type Pipeline struct {
	stages []Enhancer
	log    *slog.Logger
	rec    Recorder
	tracer trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-stage debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRecorder sets the metrics recorder. The default is NoopRecorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.rec = r
		}
	}
}

// WithTracerProvider derives the pipeline's tracer from the given provider
// instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// New builds a pipeline over the given stages. The slice is copied.
func New(stages []Enhancer, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: append([]Enhancer(nil), stages...),
		log:    slog.Default(),
		rec:    NoopRecorder{},
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the stage names in application order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, e := range p.stages {
		names[i] = e.Name()
	}
	return names
}

// EnhanceBody runs every stage in order against a private copy of body and
// returns the final sequence. The first stage failure aborts the page and is
// returned as a *StageError; later stages are not invoked. Cancellation of
// ctx between stages aborts the same way.
func (p *Pipeline) EnhanceBody(ctx context.Context, body Body) (Body, error) {
	out := Body(htmlx.CloneFragment(body))
	start := time.Now()

	for _, e := range p.stages {
		select {
		case <-ctx.Done():
			se := &StageError{Stage: e.Name(), Err: ctx.Err()}
			p.rec.IncStageResult(e.Name(), ResultCanceled)
			return nil, se
		default:
		}

		stageCtx, span := p.tracer.Start(ctx, "enhance."+e.Name(),
			trace.WithAttributes(attribute.String("enhance.stage", e.Name())))
		t0 := time.Now()
		next, err := e.Enhance(stageCtx, out)
		d := time.Since(t0)
		p.rec.ObserveStageDuration(e.Name(), d)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			p.rec.IncStageResult(e.Name(), ResultError)
			return nil, &StageError{Stage: e.Name(), Err: err}
		}
		span.SetAttributes(attribute.Int("enhance.nodes", len(next)))
		span.End()
		p.rec.IncStageResult(e.Name(), ResultSuccess)
		p.log.Debug("enhancer applied", "stage", e.Name(), "duration", d, "nodes", len(next))
		out = next
	}

	p.rec.ObserveEnhanceDuration(time.Since(start))
	p.rec.IncBodiesEnhanced()
	return out, nil
}
