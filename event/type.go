package event

import (
	"time"
)

// ResetEvent is a connection reset notification decoded from one published line.
// Addresses are kept textual exactly as received; ports are not range checked.
type ResetEvent struct {
	SourceAddr string
	SourcePort uint64
	DestAddr   string
	DestPort   uint64
}

// ResolvedEvent is a ResetEvent with both addresses replaced by host names.
type ResolvedEvent struct {
	Time       time.Time `json:"time"`
	SourceHost string    `json:"shost"`
	SourcePort uint64    `json:"sport"`
	SourceAddr string    `json:"saddr"`
	DestHost   string    `json:"dhost"`
	DestPort   uint64    `json:"dport"`
	DestAddr   string    `json:"daddr"`
}

// Resolved builds the output record from e and the two resolved names.
func (e ResetEvent) Resolved(sourceHost, destHost string) ResolvedEvent {
	return ResolvedEvent{
		SourceHost: sourceHost,
		SourcePort: e.SourcePort,
		SourceAddr: e.SourceAddr,
		DestHost:   destHost,
		DestPort:   e.DestPort,
		DestAddr:   e.DestAddr,
	}
}
