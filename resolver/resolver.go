package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gotoolkits/resetmon/metrics"

	log "github.com/sirupsen/logrus"
)

// Outcome tells how a cached name was obtained.
type Outcome int

const (
	// Resolved means the lookup returned a host name.
	Resolved Outcome = iota + 1
	// Fallback means the lookup reported no host, so the address stands in for its name.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return metrics.OutcomeResolved
	case Fallback:
		return metrics.OutcomeFallback
	}
	return "unknown"
}

// Result is the name an address resolves to.
type Result struct {
	Name    string
	Outcome Outcome
}

// ErrEmptyAnswer is the cause when a lookup succeeds without returning a name.
var ErrEmptyAnswer = errors.New("lookup returned no names")

// LookupError is returned when a reverse lookup fails for any reason other
// than the address having no host. Such failures are never cached.
type LookupError struct {
	Address string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("reverse lookup %s: %v", e.Address, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Resolver maps raw IP addresses to host names. Each address is looked up
// at most once; the outcome is reused until the process exits.
type Resolver struct {
	lookuper Lookuper
	cache    *Cache
	metrics  *metrics.Metrics
}

type Option func(*Resolver)

// WithMetrics records lookups and cache usage on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New returns a Resolver that performs lookups with lookuper and keeps
// outcomes in cache.
func New(lookuper Lookuper, cache *Cache, opts ...Option) *Resolver {
	r := &Resolver{
		lookuper: lookuper,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the host name for address, consulting the cache first.
// A not-found answer yields the address itself with outcome Fallback and is
// cached like a real name. Any other failure is returned as *LookupError and
// leaves the cache untouched so a later call retries.
func (r *Resolver) Resolve(ctx context.Context, address string) (Result, error) {
	if res, ok := r.cache.Get(address); ok {
		r.metrics.CacheHit()
		return res, nil
	}

	res, err := r.lookup(ctx, address)
	if err != nil {
		r.metrics.LookupDone(metrics.OutcomeError)
		return Result{}, err
	}
	r.metrics.LookupDone(res.Outcome.String())

	res = r.cache.Add(address, res)
	r.metrics.SetCacheEntries(r.cache.Len())

	log.WithFields(log.Fields{
		"address": address,
		"name":    res.Name,
		"outcome": res.Outcome,
	}).Debug("Resolved address")
	return res, nil
}

// Hostname is Resolve reduced to the name.
func (r *Resolver) Hostname(ctx context.Context, address string) (string, error) {
	res, err := r.Resolve(ctx, address)
	if err != nil {
		return "", err
	}
	return res.Name, nil
}

func (r *Resolver) lookup(ctx context.Context, address string) (Result, error) {
	names, err := r.lookuper.LookupAddr(ctx, address)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return Result{Name: address, Outcome: Fallback}, nil
		}
		return Result{}, &LookupError{Address: address, Err: err}
	}
	if len(names) == 0 {
		return Result{}, &LookupError{Address: address, Err: ErrEmptyAnswer}
	}
	return Result{Name: strings.TrimSuffix(names[0], "."), Outcome: Resolved}, nil
}
