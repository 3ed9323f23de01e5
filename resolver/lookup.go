package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Lookuper performs reverse address lookups. *net.Resolver satisfies it.
//
// A "no such host" answer must be reported as a *net.DNSError with
// IsNotFound set; every other error is treated as a lookup failure.
type Lookuper interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// SystemLookuper uses the host's configured name resolution.
func SystemLookuper() Lookuper {
	return net.DefaultResolver
}

// DNSLookuper sends PTR queries straight to one DNS server, bypassing the
// host's resolver configuration.
type DNSLookuper struct {
	Server string
	client *dns.Client
}

var _ Lookuper = (*DNSLookuper)(nil)

// NewDNSLookuper queries server ("host:port") over UDP with the given timeout.
func NewDNSLookuper(server string, timeout time.Duration) *DNSLookuper {
	return &DNSLookuper{
		Server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

func (l *DNSLookuper) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, &net.DNSError{Err: "unrecognized address", Name: addr}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	in, _, err := l.client.ExchangeContext(ctx, msg, l.Server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", l.Server, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, notFound(addr, l.Server)
	default:
		return nil, &net.DNSError{
			Err:    fmt.Sprintf("server answered %s", dns.RcodeToString[in.Rcode]),
			Name:   addr,
			Server: l.Server,
		}
	}

	var names []string
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	if len(names) == 0 {
		// NOERROR with no PTR records is NODATA, the same condition the
		// system resolver reports as not found.
		return nil, notFound(addr, l.Server)
	}
	return names, nil
}

func notFound(addr, server string) error {
	return &net.DNSError{
		Err:        "no such host",
		Name:       addr,
		Server:     server,
		IsNotFound: true,
	}
}
