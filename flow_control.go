package mqttv5

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQuotaExceeded is returned when Acquire is called with no quota left.
var ErrQuotaExceeded = errors.New("receive quota exceeded")

// defaultReceiveMaximum is used whenever a FlowController is configured
// with a receive maximum of zero, matching the MQTT v5.0 default of no
// explicit limit advertised by the Receive Maximum property.
const defaultReceiveMaximum = 65535

// FlowController bounds the number of QoS > 0 PUBLISH packets that may be
// outstanding (sent but not yet acknowledged) at any time, per the Receive
// Maximum mechanism described in MQTT v5.0 section 4.9. The counters
// themselves are atomics so Available/InFlight/CanSend never block a busy
// connection; cond only comes into play for callers waiting in
// AcquireContext for quota that Release or SetReceiveMaximum just freed up.
type FlowController struct {
	receiveMaximum atomic.Uint32
	inFlight       atomic.Uint32

	mu   sync.Mutex
	cond *sync.Cond
}

// NewFlowController builds a FlowController. A receiveMaximum of zero is
// normalized to defaultReceiveMaximum.
func NewFlowController(receiveMaximum uint16) *FlowController {
	f := &FlowController{}
	f.cond = sync.NewCond(&f.mu)
	f.receiveMaximum.Store(normalizeReceiveMaximum(receiveMaximum))
	return f
}

func normalizeReceiveMaximum(v uint16) uint32 {
	if v == 0 {
		return defaultReceiveMaximum
	}
	return uint32(v)
}

// ReceiveMaximum returns the configured receive maximum.
func (f *FlowController) ReceiveMaximum() uint16 {
	return uint16(f.receiveMaximum.Load())
}

// SetReceiveMaximum updates the receive maximum in place.
func (f *FlowController) SetReceiveMaximum(maximum uint16) {
	f.receiveMaximum.Store(normalizeReceiveMaximum(maximum))
	f.wake()
}

// InFlight returns the current number of outstanding messages.
func (f *FlowController) InFlight() uint16 {
	return uint16(f.inFlight.Load())
}

// Available returns how many more messages may be sent before the quota
// is exhausted.
func (f *FlowController) Available() uint16 {
	max, cur := f.receiveMaximum.Load(), f.inFlight.Load()
	if cur >= max {
		return 0
	}
	return uint16(max - cur)
}

// CanSend reports whether quota remains for one more message.
func (f *FlowController) CanSend() bool {
	return f.inFlight.Load() < f.receiveMaximum.Load()
}

// TryAcquire takes one unit of quota without blocking, reporting whether
// it succeeded.
func (f *FlowController) TryAcquire() bool {
	for {
		cur := f.inFlight.Load()
		max := f.receiveMaximum.Load()
		if cur >= max {
			return false
		}
		if f.inFlight.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Acquire takes one unit of quota, returning ErrQuotaExceeded if none
// remains.
func (f *FlowController) Acquire() error {
	if !f.TryAcquire() {
		return ErrQuotaExceeded
	}
	return nil
}

// AcquireContext takes one unit of quota, blocking until one is released by
// a peer or Reset/SetReceiveMaximum rather than failing fast, since MQTT
// v5.0 section 4.9 requires a sender to suspend publishing past Receive
// Maximum, not abandon the publish. Returns ctx.Err() if ctx is done first.
func (f *FlowController) AcquireContext(ctx context.Context) error {
	if f.TryAcquire() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stop := context.AfterFunc(ctx, f.wake)
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.TryAcquire() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		f.cond.Wait()
	}
}

// wake broadcasts to any goroutine blocked in AcquireContext so it can
// re-check quota or ctx cancellation.
func (f *FlowController) wake() {
	f.mu.Lock()
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Release returns one unit of quota, for example when a PUBACK or PUBCOMP
// completes an exchange. A no-op once the count has reached zero.
func (f *FlowController) Release() {
	for {
		cur := f.inFlight.Load()
		if cur == 0 {
			return
		}
		if f.inFlight.CompareAndSwap(cur, cur-1) {
			f.wake()
			return
		}
	}
}

// Reset clears the in-flight count, used when a session is discarded and
// reconnection starts with a clean slate.
func (f *FlowController) Reset() {
	f.inFlight.Store(0)
	f.wake()
}
