package monitor

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gotoolkits/resetmon/event"
	"github.com/gotoolkits/resetmon/metrics"
	"github.com/gotoolkits/resetmon/resolver"
	"github.com/gotoolkits/resetmon/subscriber"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookuper struct {
	mu    sync.Mutex
	names map[string]string
	errs  map[string]error
	calls map[string]int
}

func (f *fakeLookuper) LookupAddr(_ context.Context, addr string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[addr]++
	if err, ok := f.errs[addr]; ok {
		return nil, err
	}
	if name, ok := f.names[addr]; ok {
		return []string{name + "."}, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: addr, IsNotFound: true}
}

type captureOutputer struct {
	headers int
	events  []event.ResolvedEvent
}

func (c *captureOutputer) PrintHeader()                    { c.headers++ }
func (c *captureOutputer) PrintLine(e event.ResolvedEvent) { c.events = append(c.events, e) }

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMonitor(input string, names map[string]string, opts ...Option) (*Monitor, *fakeLookuper, *captureOutputer) {
	lk := &fakeLookuper{names: names, errs: map[string]error{}, calls: map[string]int{}}
	out := &captureOutputer{}
	mon := New(subscriber.NewLineSource(context.Background(), strings.NewReader(input)), resolver.New(lk, resolver.NewCache()), out, opts...)
	mon.now = func() time.Time { return fixedTime }
	return mon, lk, out
}

func TestHandle_ResolvedAndFallback(t *testing.T) {
	mon, _, _ := newTestMonitor("", map[string]string{"10.0.0.1": "web.internal"})

	e, ok, err := mon.Handle(context.Background(), "reset 10.0.0.1:443 10.0.0.2:51000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, event.ResolvedEvent{
		Time:       fixedTime,
		SourceHost: "web.internal",
		SourcePort: 443,
		SourceAddr: "10.0.0.1",
		DestHost:   "10.0.0.2",
		DestPort:   51000,
		DestAddr:   "10.0.0.2",
	}, e)
}

func TestHandle_DropsNonMatchingLines(t *testing.T) {
	var dropped []string
	mon, lk, _ := newTestMonitor("", nil, WithParseFailureHook(func(line string, err error) {
		dropped = append(dropped, line)
	}))

	for _, line := range []string{"reset not-an-ip:80 10.0.0.2:1", "reset 1.2.3.4: 5.6.7.8:1"} {
		_, ok, err := mon.Handle(context.Background(), line)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, []string{"reset not-an-ip:80 10.0.0.2:1", "reset 1.2.3.4: 5.6.7.8:1"}, dropped)
	assert.Empty(t, lk.calls, "no lookups for dropped lines")
}

func TestHandle_LookupFailure(t *testing.T) {
	mon, lk, _ := newTestMonitor("", nil)
	cause := errors.New("network unreachable")
	lk.errs["5.6.7.8"] = cause

	_, ok, err := mon.Handle(context.Background(), "reset 1.2.3.4:1 5.6.7.8:2")
	assert.False(t, ok)
	var lookupErr *resolver.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "5.6.7.8", lookupErr.Address)
	assert.ErrorIs(t, err, cause)
}

func TestRun(t *testing.T) {
	input := strings.Join([]string{
		"reset 10.0.0.1:443 10.0.0.2:51000",
		"reset not-an-ip:80 10.0.0.2:1",
		"reset 1.2.3.4:22 5.6.7.8:22",
		"reset 1.2.3.4:22 5.6.7.8:22",
		"reset 9.9.9.9:1 1.2.3.4:2",
		"reset 1.2.3.4: 5.6.7.8:1",
	}, "\n")
	names := map[string]string{
		"10.0.0.1": "web.internal",
		"1.2.3.4":  "a.example",
		"5.6.7.8":  "b.example",
	}
	m := metrics.New()
	mon, lk, out := newTestMonitor(input, names, WithMetrics(m))
	lk.errs["9.9.9.9"] = &net.DNSError{Err: "i/o timeout", IsTimeout: true}

	require.NoError(t, mon.Run(context.Background()))

	assert.Equal(t, 1, out.headers)
	require.Len(t, out.events, 3)
	assert.Equal(t, "web.internal", out.events[0].SourceHost)
	assert.Equal(t, "10.0.0.2", out.events[0].DestHost)
	assert.Equal(t, uint64(51000), out.events[0].DestPort)
	assert.Equal(t, out.events[1], out.events[2])
	assert.Equal(t, "a.example", out.events[1].SourceHost)
	assert.Equal(t, "b.example", out.events[1].DestHost)

	// one lookup per address across both identical messages
	assert.Equal(t, 1, lk.calls["1.2.3.4"])
	assert.Equal(t, 1, lk.calls["5.6.7.8"])
	assert.Equal(t, 1, lk.calls["9.9.9.9"])

	assert.Equal(t, float64(6), testutil.ToFloat64(m.MessagesReceived))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ParseFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolveFailures))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.EventsEmitted))
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	mon, _, out := newTestMonitor("reset 1.2.3.4:1 5.6.7.8:2\n", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, mon.Run(ctx))
	assert.Empty(t, out.events)
}

type failingSource struct{ err error }

func (f failingSource) Recv() (string, error) { return "", f.err }
func (f failingSource) Close() error          { return nil }

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("boom")
	mon := New(failingSource{err: boom}, resolver.New(&fakeLookuper{}, resolver.NewCache()), &captureOutputer{})
	assert.ErrorIs(t, mon.Run(context.Background()), boom)

	mon = New(failingSource{err: subscriber.ErrClosed}, resolver.New(&fakeLookuper{}, resolver.NewCache()), &captureOutputer{})
	assert.NoError(t, mon.Run(context.Background()))
}
