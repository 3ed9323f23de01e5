package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gotoolkits/resetmon/event"
)

// ErrNoMatch is returned for any line that is not a complete reset message.
var ErrNoMatch = errors.New("line does not match reset message format")

// Octets are 1-3 digits and never range checked, so 999.999.999.999 is accepted.
var resetPattern = regexp.MustCompile(`^reset ((?:\d{1,3}\.){3}\d{1,3}):(\d+?) ((?:\d{1,3}\.){3}\d{1,3}):(\d+?)$`)

// Parse decodes a line of the form "reset <ipv4>:<port> <ipv4>:<port>".
func Parse(line string) (event.ResetEvent, error) {
	m := resetPattern.FindStringSubmatch(line)
	if m == nil {
		return event.ResetEvent{}, ErrNoMatch
	}

	sport, err := parsePort(m[2])
	if err != nil {
		return event.ResetEvent{}, err
	}
	dport, err := parsePort(m[4])
	if err != nil {
		return event.ResetEvent{}, err
	}

	return event.ResetEvent{
		SourceAddr: m[1],
		SourcePort: sport,
		DestAddr:   m[3],
		DestPort:   dport,
	}, nil
}

// parsePort reads a decimal port. Leading zeros stay decimal.
func parsePort(s string) (uint64, error) {
	port, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// only reachable when the digits overflow uint64
		return 0, fmt.Errorf("%w: port %q: %v", ErrNoMatch, s, err)
	}
	return port, nil
}
