package subscriber

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-zeromq/zmq4"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultEndpoint = "tcp://localhost:5555"
	DefaultTopic    = "reset"
)

// ErrClosed is returned by Recv once the source has been closed.
var ErrClosed = errors.New("subscriber closed")

// Source delivers raw notification lines, one per Recv call.
type Source interface {
	Recv() (string, error)
	Close() error
}

// zmqSource is a ZeroMQ SUB socket subscribed to a topic prefix.
type zmqSource struct {
	ctx    context.Context
	sock   zmq4.Socket
	closed bool
	mu     sync.Mutex
}

// NewZmqSource connects a SUB socket to endpoint and subscribes to topic.
// It keeps dialing until the publisher is reachable and redials whenever the
// connection drops. The socket is torn down when ctx is cancelled, in which
// case a dial still in progress returns ErrClosed.
func NewZmqSource(ctx context.Context, endpoint, topic string) (Source, error) {
	sock := zmq4.NewSub(ctx,
		zmq4.WithDialerMaxRetries(-1),
		zmq4.WithAutomaticReconnect(true),
	)
	// topics are replayed to every connection, including reconnects
	if err := sock.SetOption(zmq4.OptionSubscribe, topic); err != nil {
		sock.Close()
		return nil, fmt.Errorf("subscribing to %q: %w", topic, err)
	}
	if err := sock.Dial(endpoint); err != nil {
		sock.Close()
		if ctx.Err() != nil {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	log.WithFields(log.Fields{
		"endpoint": endpoint,
		"topic":    topic,
	}).Info("Subscribed")

	return &zmqSource{ctx: ctx, sock: sock}, nil
}

// Recv blocks until a message arrives. A dropped publisher connection is
// logged and Recv keeps waiting while the socket redials.
func (s *zmqSource) Recv() (string, error) {
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			if s.isClosed() || s.ctx.Err() != nil {
				return "", ErrClosed
			}
			log.WithError(err).Warn("Lost publisher connection, reconnecting")
			continue
		}
		if len(msg.Frames) == 0 {
			continue
		}
		return string(msg.Frames[0]), nil
	}
}

func (s *zmqSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}

func (s *zmqSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type scanned struct {
	line string
	err  error
}

// lineSource reads newline separated messages from a reader.
type lineSource struct {
	ctx    context.Context
	cancel context.CancelFunc
	lines  chan scanned
	closer io.Closer
}

// NewLineSource delivers each line of r. Recv returns io.EOF at the end of
// input and ErrClosed once ctx is cancelled or the source is closed, even
// while a read on r is still blocked.
func NewLineSource(ctx context.Context, r io.Reader) Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &lineSource{ctx: ctx, cancel: cancel, lines: make(chan scanned)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	go s.scan(r)
	return s
}

func (s *lineSource) scan(r io.Reader) {
	defer close(s.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case s.lines <- scanned{line: scanner.Text()}:
		case <-s.ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case s.lines <- scanned{err: err}:
		case <-s.ctx.Done():
		}
	}
}

func (s *lineSource) Recv() (string, error) {
	select {
	case <-s.ctx.Done():
		return "", ErrClosed
	case l, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return l.line, l.err
	}
}

func (s *lineSource) Close() error {
	s.cancel()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Open returns the source named by kind: "zmq" or "stdin".
func Open(ctx context.Context, kind, endpoint, topic string) (Source, error) {
	switch kind {
	case "zmq", "":
		return NewZmqSource(ctx, endpoint, topic)
	case "stdin":
		return NewLineSource(ctx, os.Stdin), nil
	}
	return nil, fmt.Errorf("unknown source %q", kind)
}
