package filter

import (
	"net"
	"strconv"
	"strings"

	"github.com/gotoolkits/resetmon/event"
)

type FilterCondition interface {
	Match(e event.ResolvedEvent) bool
}

// PortFilter matches the source or destination port.
type PortFilter struct {
	port   uint64
	source bool
}

func (f *PortFilter) Match(e event.ResolvedEvent) bool {
	if f.source {
		return e.SourcePort == f.port
	}
	return e.DestPort == f.port
}

// AddrFilter matches a raw address exactly.
type AddrFilter struct {
	addr   string
	source bool
}

func (f *AddrFilter) Match(e event.ResolvedEvent) bool {
	if f.source {
		return e.SourceAddr == f.addr
	}
	return e.DestAddr == f.addr
}

// CIDRFilter matches a raw address inside a network. Addresses that do not
// parse as IPs (out of range octets) never match.
type CIDRFilter struct {
	ipNet  *net.IPNet
	source bool
}

func (f *CIDRFilter) Match(e event.ResolvedEvent) bool {
	addr := e.DestAddr
	if f.source {
		addr = e.SourceAddr
	}
	ip := net.ParseIP(addr)
	return ip != nil && f.ipNet.Contains(ip)
}

// HostFilter matches a substring of the resolved host name.
type HostFilter struct {
	keyword string
	source  bool
}

func (f *HostFilter) Match(e event.ResolvedEvent) bool {
	if f.source {
		return strings.Contains(e.SourceHost, f.keyword)
	}
	return strings.Contains(e.DestHost, f.keyword)
}

type FilterGroup struct {
	filters []FilterCondition
	op      string // "&&" or "||"
}

type ExcludeFilter struct {
	groups []FilterGroup
}

func (ef *ExcludeFilter) AddGroup(filters []FilterCondition, op string) {
	ef.groups = append(ef.groups, FilterGroup{filters: filters, op: op})
}

// ShouldExclude reports whether any group matches e. A nil filter excludes nothing.
func (ef *ExcludeFilter) ShouldExclude(e event.ResolvedEvent) bool {
	if ef == nil {
		return false
	}
	for _, group := range ef.groups {
		groupResult := false
		if group.op == "&&" {
			groupResult = true
			for _, filter := range group.filters {
				if !filter.Match(e) {
					groupResult = false
					break
				}
			}
		} else { // "||" is default
			for _, filter := range group.filters {
				if filter.Match(e) {
					groupResult = true
					break
				}
			}
		}
		if groupResult {
			return true
		}
	}
	return false
}

// ParseExcludeParam builds a filter from an expression such as
// "dport=443 && dhost='db'; saddr='10.0.0.0/8'". Groups are separated by ";"
// and OR-ed together. Unknown keys and malformed conditions are skipped.
func ParseExcludeParam(param string) *ExcludeFilter {
	ef := &ExcludeFilter{}

	for _, groupStr := range strings.Split(param, ";") {
		groupStr = strings.TrimSpace(groupStr)
		if groupStr == "" {
			continue
		}

		op := "||"
		if strings.Contains(groupStr, " && ") {
			op = "&&"
		}

		var filters []FilterCondition
		for _, cond := range strings.Split(groupStr, op) {
			kv := strings.SplitN(strings.TrimSpace(cond), "=", 2)
			if len(kv) != 2 {
				continue
			}

			key := strings.TrimSpace(kv[0])
			value := strings.Trim(strings.TrimSpace(kv[1]), "'\"")
			source := strings.HasPrefix(key, "s")

			switch key {
			case "sport", "dport":
				port, err := strconv.ParseUint(value, 10, 64)
				if err != nil {
					continue
				}
				filters = append(filters, &PortFilter{port: port, source: source})
			case "saddr", "daddr":
				if strings.Contains(value, "/") {
					if _, ipNet, err := net.ParseCIDR(value); err == nil {
						filters = append(filters, &CIDRFilter{ipNet: ipNet, source: source})
						continue
					}
				}
				filters = append(filters, &AddrFilter{addr: value, source: source})
			case "shost", "dhost":
				filters = append(filters, &HostFilter{keyword: value, source: source})
			}
		}

		if len(filters) > 0 {
			ef.AddGroup(filters, op)
		}
	}

	return ef
}
