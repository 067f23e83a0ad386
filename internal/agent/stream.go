package agent

import "sync/atomic"

// Update is one observation of the run: the phase just entered, the
// iteration counter, and an immutable state snapshot.
type Update struct {
	Step      Phase
	Iteration int
	State     Snapshot
}

// Sink receives updates after every state transition. Implementations
// must not block: the controller fires and forgets.
type Sink interface {
	Notify(Update)
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Notify(Update) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Update)

func (f SinkFunc) Notify(u Update) { f(u) }

// Stream is a bounded, single-consumer sequence of updates. When the
// buffer is full the oldest pending behavior is to drop the new update
// rather than block the research loop. The channel closes exactly once,
// after the terminal update is delivered.
type Stream struct {
	ch      chan Update
	dropped atomic.Int64
}

// NewStream creates a stream with the given buffer size (minimum 1).
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{ch: make(chan Update, buffer)}
}

// Notify implements Sink. Non-terminal updates are dropped when the
// consumer lags. The terminal update is never dropped: if the buffer is
// full, the oldest pending update is discarded to make room, so the
// stream always ends with the terminal snapshot and then closes.
func (s *Stream) Notify(u Update) {
	if u.Step.Terminal() {
		for {
			select {
			case s.ch <- u:
				close(s.ch)
				return
			default:
				select {
				case <-s.ch:
					s.dropped.Add(1)
				default:
				}
			}
		}
	}
	select {
	case s.ch <- u:
	default:
		s.dropped.Add(1)
	}
}

// Updates returns the receive side. The channel is closed after the
// terminal update; a stream is not restartable.
func (s *Stream) Updates() <-chan Update {
	return s.ch
}

// Dropped reports how many non-terminal updates were discarded because
// the consumer was slow. Safe to call while the producer is running.
func (s *Stream) Dropped() int {
	return int(s.dropped.Load())
}
