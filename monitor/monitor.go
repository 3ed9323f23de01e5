package monitor

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gotoolkits/resetmon/event"
	"github.com/gotoolkits/resetmon/metrics"
	"github.com/gotoolkits/resetmon/outputer"
	"github.com/gotoolkits/resetmon/parser"
	"github.com/gotoolkits/resetmon/resolver"
	"github.com/gotoolkits/resetmon/subscriber"

	log "github.com/sirupsen/logrus"
)

// Monitor feeds every line from a source through parse and resolve and hands
// the results to an outputer. Lines are handled one at a time, in order.
type Monitor struct {
	source         subscriber.Source
	resolver       *resolver.Resolver
	outputer       outputer.IOutputer
	metrics        *metrics.Metrics
	onParseFailure func(line string, err error)
	now            func() time.Time
}

type Option func(*Monitor)

// WithMetrics records pipeline counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mon *Monitor) {
		mon.metrics = m
	}
}

// WithParseFailureHook calls fn for every dropped line.
func WithParseFailureHook(fn func(line string, err error)) Option {
	return func(mon *Monitor) {
		mon.onParseFailure = fn
	}
}

func New(source subscriber.Source, r *resolver.Resolver, out outputer.IOutputer, opts ...Option) *Monitor {
	mon := &Monitor{
		source:   source,
		resolver: r,
		outputer: out,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(mon)
	}
	return mon
}

// Handle runs one line through the pipeline. ok is false when the line is
// not a reset message; such lines are dropped without an error. A resolution
// failure other than not-found is returned as a *resolver.LookupError.
func (m *Monitor) Handle(ctx context.Context, line string) (e event.ResolvedEvent, ok bool, err error) {
	reset, err := parser.Parse(line)
	if err != nil {
		m.metrics.ParseFailed()
		if m.onParseFailure != nil {
			m.onParseFailure(line, err)
		}
		return event.ResolvedEvent{}, false, nil
	}

	srcHost, err := m.resolver.Hostname(ctx, reset.SourceAddr)
	if err != nil {
		return event.ResolvedEvent{}, false, err
	}
	dstHost, err := m.resolver.Hostname(ctx, reset.DestAddr)
	if err != nil {
		return event.ResolvedEvent{}, false, err
	}

	e = reset.Resolved(srcHost, dstHost)
	e.Time = m.now()
	return e, true, nil
}

// Run processes lines until the source is exhausted or closed, or ctx is
// cancelled. Lookup failures are logged and the line is skipped.
func (m *Monitor) Run(ctx context.Context) error {
	m.outputer.PrintHeader()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := m.source.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, subscriber.ErrClosed) {
				return nil
			}
			return err
		}
		m.metrics.MessageReceived()

		e, ok, err := m.Handle(ctx, line)
		if err != nil {
			m.metrics.ResolveFailed()
			log.WithError(err).WithField("line", line).Warn("Skipping reset event")
			continue
		}
		if !ok {
			continue
		}

		m.outputer.PrintLine(e)
		m.metrics.EventEmitted()
	}
}
