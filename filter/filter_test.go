package filter

import (
	"net"
	"testing"

	"github.com/gotoolkits/resetmon/event"
)

func TestPortFilter_Match(t *testing.T) {
	tests := []struct {
		name     string
		filter   PortFilter
		event    event.ResolvedEvent
		expected bool
	}{
		{
			name:     "match dport",
			filter:   PortFilter{port: 443},
			event:    event.ResolvedEvent{DestPort: 443},
			expected: true,
		},
		{
			name:     "dport filter ignores sport",
			filter:   PortFilter{port: 443},
			event:    event.ResolvedEvent{SourcePort: 443, DestPort: 51000},
			expected: false,
		},
		{
			name:     "match sport",
			filter:   PortFilter{port: 22, source: true},
			event:    event.ResolvedEvent{SourcePort: 22},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.event); got != tt.expected {
				t.Errorf("PortFilter.Match() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCIDRFilter_Match(t *testing.T) {
	_, ipNet, _ := net.ParseCIDR("10.0.0.0/8")

	tests := []struct {
		name     string
		event    event.ResolvedEvent
		expected bool
	}{
		{"inside", event.ResolvedEvent{DestAddr: "10.1.2.3"}, true},
		{"outside", event.ResolvedEvent{DestAddr: "192.168.1.1"}, false},
		{"unparseable address", event.ResolvedEvent{DestAddr: "999.999.999.999"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &CIDRFilter{ipNet: ipNet}
			if got := f.Match(tt.event); got != tt.expected {
				t.Errorf("CIDRFilter.Match() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHostFilter_Match(t *testing.T) {
	e := event.ResolvedEvent{SourceHost: "web.internal", DestHost: "db.internal"}

	if !(&HostFilter{keyword: "web", source: true}).Match(e) {
		t.Error("expected shost=web to match")
	}
	if (&HostFilter{keyword: "web"}).Match(e) {
		t.Error("expected dhost=web not to match")
	}
}

func TestExcludeFilter_NilExcludesNothing(t *testing.T) {
	var ef *ExcludeFilter
	if ef.ShouldExclude(event.ResolvedEvent{}) {
		t.Error("nil filter excluded an event")
	}
}

func TestParseExcludeParam(t *testing.T) {
	e := event.ResolvedEvent{
		SourceHost: "web.internal",
		SourcePort: 443,
		SourceAddr: "10.0.0.1",
		DestHost:   "10.0.0.2",
		DestPort:   51000,
		DestAddr:   "10.0.0.2",
	}

	tests := []struct {
		name     string
		param    string
		expected bool
	}{
		{"single port condition", "sport=443", true},
		{"port mismatch", "dport=443", false},
		{"AND conditions", "sport=443 && shost='web'", true},
		{"AND conditions one fails", "sport=443 && dhost='web'", false},
		{"OR groups", "dport=80; daddr='10.0.0.2'", true},
		{"OR within group", "dport=80 || dport=51000", true},
		{"CIDR condition", "saddr='10.0.0.0/24'", true},
		{"exact address", "daddr=\"10.0.0.1\"", false},
		{"bad port is skipped", "dport=http", false},
		{"unknown key", "pid=1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := ParseExcludeParam(tt.param)
			if got := filter.ShouldExclude(e); got != tt.expected {
				t.Errorf("ParseExcludeParam(%q) result = %v, want %v", tt.param, got, tt.expected)
			}
		})
	}
}
