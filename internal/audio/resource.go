// Package audio owns the single shared audio resource (microphone and
// speaker) and the device capabilities that use it.
package audio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrResourceBusy is returned when the resource is held in a state that
// cannot be preempted.
var ErrResourceBusy = errors.New("audio resource busy")

// Holder identifies what currently holds the resource.
type Holder int

const (
	None Holder = iota
	Capture
	Playback
)

func (h Holder) String() string {
	switch h {
	case None:
		return "none"
	case Capture:
		return "capture"
	case Playback:
		return "playback"
	}
	return fmt.Sprintf("holder(%d)", int(h))
}

// Lease is proof of holding the resource. Releasing a lease that has since
// been preempted is a no-op.
type Lease struct {
	id     uint64
	holder Holder
}

// Holder returns what the lease was granted for.
func (l Lease) Holder() Holder { return l.holder }

// Resource arbitrates exclusive use of the audio hardware.
//
// Capture preempts playback: acquiring for Capture while Playback holds the
// resource calls the playback's preempt function and takes over. A new
// Playback likewise replaces an older one. Nothing preempts Capture.
type Resource struct {
	mu      sync.Mutex
	holder  Holder
	lease   uint64
	seq     uint64
	preempt func()
}

// NewResource returns a free resource.
func NewResource() *Resource {
	return &Resource{}
}

// Acquire takes the resource for h. preempt is called, outside any lock,
// if a later Acquire takes the resource away from this lease; it must stop
// the activity without blocking on the caller.
func (r *Resource) Acquire(h Holder, preempt func()) (Lease, error) {
	if h != Capture && h != Playback {
		return Lease{}, fmt.Errorf("acquire audio resource for %s", h)
	}

	r.mu.Lock()
	if r.holder == Capture {
		r.mu.Unlock()
		return Lease{}, ErrResourceBusy
	}
	stop := r.preempt
	r.seq++
	l := Lease{id: r.seq, holder: h}
	r.holder, r.lease, r.preempt = h, l.id, preempt
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
	return l, nil
}

// Release frees the resource if l is still the current lease.
func (r *Resource) Release(l Lease) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.id == 0 || l.id != r.lease {
		return false
	}
	r.holder, r.lease, r.preempt = None, 0, nil
	return true
}

// Holder returns the current holder.
func (r *Resource) Holder() Holder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder
}
