// Package stream decodes the planning service's incremental response body
// into progress events.
//
// The body is a sequence of records separated by a blank line. Only records
// beginning with "data: " carry an event; everything else is ignored.
// Records that cannot be decoded are dropped and counted, never fatal.
package stream

import (
	"bytes"
	"sync/atomic"

	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
)

// DefaultMaxRecordSize caps a single record.
const DefaultMaxRecordSize = 1 << 20

var (
	recordSep  = []byte("\n\n")
	dataPrefix = []byte("data: ")
	crlf       = []byte("\r\n")
	lf         = []byte("\n")
)

// Decoder frames raw bytes into records and decodes them.
// It is not safe for concurrent Feed calls; Dropped may be read at any time.
type Decoder struct {
	buf      []byte
	maxSize  int
	skipping bool
	dropped  atomic.Int64

	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option configures a Decoder or Stream.
type Option func(*Decoder)

// WithMaxRecordSize sets the largest record accepted. Larger records are dropped.
func WithMaxRecordSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithMetrics counts drops on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// WithLogger logs drops at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l.WithComponent("stream")
		}
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxSize: DefaultMaxRecordSize,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends chunk and returns the events of every record it completed.
// The trailing partial record is held until a later Feed completes it.
func (d *Decoder) Feed(chunk []byte) []plan.ProgressEvent {
	d.buf = append(d.buf, chunk...)
	// A lone trailing '\r' may pair with the next chunk's '\n'.
	if bytes.Contains(d.buf, crlf) {
		d.buf = bytes.ReplaceAll(d.buf, crlf, lf)
	}

	var events []plan.ProgressEvent
	for {
		i := bytes.Index(d.buf, recordSep)
		if i < 0 {
			break
		}
		record := d.buf[:i]
		d.buf = d.buf[i+len(recordSep):]

		if d.skipping {
			// tail of an oversized record, already counted
			d.skipping = false
			continue
		}
		if len(record) > d.maxSize {
			d.drop("record too large", len(record))
			continue
		}
		if ev, ok := d.decode(record); ok {
			events = append(events, ev)
		}
	}

	if len(d.buf) > d.maxSize {
		if !d.skipping {
			d.drop("record too large", len(d.buf))
			d.skipping = true
		}
		// keep the last byte so a boundary split across chunks is still seen
		d.buf = append(d.buf[:0], d.buf[len(d.buf)-1])
	}

	// release the backing array once it has been fully consumed
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return events
}

// Buffered returns the number of bytes held for an incomplete record.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Dropped returns the number of records dropped so far.
func (d *Decoder) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Decoder) decode(record []byte) (plan.ProgressEvent, bool) {
	if !bytes.HasPrefix(record, dataPrefix) {
		return plan.ProgressEvent{}, false
	}

	ev, err := decodePayload(record[len(dataPrefix):])
	if err != nil {
		d.drop(err.Error(), len(record))
		return plan.ProgressEvent{}, false
	}
	d.logger.Debug("stream event", "event", ev.String())
	return ev, true
}

func (d *Decoder) drop(reason string, size int) {
	d.dropped.Add(1)
	d.metrics.RecordDropped()
	d.logger.Debug("dropped stream record", "reason", reason, "bytes", size)
}
