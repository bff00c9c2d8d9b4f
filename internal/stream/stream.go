package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pablasso/routeright/internal/plan"
)

const readSize = 4096

// Stream is a lazy, finite sequence of events decoded from a reader.
type Stream struct {
	events chan plan.ProgressEvent
	dec    *Decoder

	mu  sync.Mutex
	err error
}

// Parse starts decoding r in a goroutine. The Events channel closes at end of
// stream, on a read error or when ctx is cancelled. A Read blocked in r is
// only interrupted by closing r, so callers owning a network body should
// close it on cancellation.
func Parse(ctx context.Context, r io.Reader, opts ...Option) *Stream {
	s := &Stream{
		events: make(chan plan.ProgressEvent),
		dec:    NewDecoder(opts...),
	}
	go s.run(ctx, r)
	return s
}

// Events returns the decoded events.
func (s *Stream) Events() <-chan plan.ProgressEvent {
	return s.events
}

// Err returns the read error that ended the stream, if any. It is only
// meaningful after Events has been closed. A clean end of stream is nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of undecodable records skipped so far.
func (s *Stream) Dropped() int64 {
	return s.dec.Dropped()
}

func (s *Stream) run(ctx context.Context, r io.Reader) {
	defer close(s.events)

	buf := make([]byte, readSize)
	for {
		if err := ctx.Err(); err != nil {
			s.setErr(err)
			return
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range s.dec.Feed(buf[:n]) {
				select {
				case s.events <- ev:
				case <-ctx.Done():
					s.setErr(ctx.Err())
					return
				}
			}
		}
		if err != nil {
			// bytes still buffered at EOF are an incomplete record and are discarded
			if !errors.Is(err, io.EOF) {
				s.setErr(err)
			}
			return
		}
	}
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Collect drains s and returns every event. Intended for short bodies.
func Collect(s *Stream) []plan.ProgressEvent {
	var out []plan.ProgressEvent
	for ev := range s.Events() {
		out = append(out, ev)
	}
	return out
}
