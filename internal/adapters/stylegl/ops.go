package stylegl

import (
	"sync"
	"sync/atomic"
)

// OpType names a style mutation streamed to viewers.
type OpType string

const (
	OpStyle     OpType = "style"
	OpAddSource OpType = "addSource"
	OpSetData   OpType = "setData"
	OpAddLayer  OpType = "addLayer"
	OpSetLayout OpType = "setLayoutProperty"
	OpSetPaint  OpType = "setPaintProperty"
	OpSetFog    OpType = "setFog"
	OpEaseTo    OpType = "easeTo"
	OpRemove    OpType = "remove"
)

// Op is one mutation. OpStyle carries no payload; viewers refetch the style.
type Op struct {
	Seq        uint64 `json:"seq"`
	Type       OpType `json:"op"`
	Source     string `json:"source,omitempty"`
	Layer      string `json:"layer,omitempty"`
	Name       string `json:"name,omitempty"`
	Value      any    `json:"value,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
}

// DefaultBuffer is the per-subscriber op backlog.
const DefaultBuffer = 64

type subscriber struct {
	ch      chan Op
	once    sync.Once
	dropped atomic.Bool
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Subscription is a viewer's op stream.
type Subscription struct {
	C <-chan Op

	e *Engine
	s *subscriber
}

// Lagged reports whether ops were dropped because the viewer fell behind.
// A lagged viewer should refetch the style and resubscribe.
func (s *Subscription) Lagged() bool { return s.s.dropped.Load() }

// Close ends the subscription.
func (s *Subscription) Close() {
	s.e.mu.Lock()
	delete(s.e.subs, s.s)
	s.e.mu.Unlock()
	s.s.close()
}

// Subscribe opens an op stream. The channel closes when the engine is removed
// or the viewer lags behind by more than buffer ops.
func (e *Engine) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &subscriber{ch: make(chan Op, buffer)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		s.close()
	} else {
		e.subs[s] = struct{}{}
	}
	return &Subscription{C: s.ch, e: e, s: s}
}

func (e *Engine) broadcastLocked(op Op) {
	e.seq++
	op.Seq = e.seq
	for s := range e.subs {
		select {
		case s.ch <- op:
		default:
			s.dropped.Store(true)
			s.close()
			delete(e.subs, s)
		}
	}
}
