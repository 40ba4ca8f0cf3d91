//go:build linux

// Package reactor multiplexes goroutine suspensions onto an io_uring
// instance. Application goroutines describe operations as awaiters and park
// on them; a single driver goroutine owns the ring, batches submissions,
// reaps completions and wakes the parked goroutines.
package reactor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/internal/mpsc"
	"github.com/ember-web/ember/internal/objpool"
	"github.com/ember-web/ember/uring"
)

// wakeupToken marks the completion of the driver's own eventfd read, which
// exists solely to interrupt a kernel wait when new work arrives.
const wakeupToken = ^uint64(0)

// semCapacity bounds the number of unprocessed submissions the semaphore
// can account for. Far beyond anything the pool could carry.
const semCapacity = 1 << 30

type udKind uint8

const (
	// udIO carries the awaiter: its result slot is filled and its
	// goroutine woken when the completion arrives.
	udIO udKind = iota
	// udTimeout is the second half of a linked pair. Its completion is
	// recognised and ignored; it only exists so the block is freed.
	udTimeout
)

type userData struct {
	kind udKind
	op   *Operation
	// io references the linked I/O block of a udTimeout entry
	io objpool.Handle
}

type Reactor struct {
	ring  *uring.Ring
	queue mpsc.Queue[*Operation]
	pool  *objpool.Pool[userData]

	// sem counts pushed-but-undequeued submissions; producers release one
	// permit per push, the driver acquires up to submitThreshold per batch
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	accepting atomic.Bool
	// waiting is set while the driver blocks in the kernel for
	// completions; producers then nudge the eventfd
	waiting atomic.Bool

	wakeFd      int
	wakeReadBuf [8]byte

	submitThreshold int
	inflight        int // driver-private
	stopped         chan struct{}
}

var (
	global     *Reactor
	globalOnce sync.Once
)

// Get returns the process-wide reactor, constructing it on first use with
// the default config. Construction failure at this point is a programmer
// error (no ring support, fd limits) and terminates the process.
func Get() *Reactor {
	globalOnce.Do(func() {
		r, err := New(config.Default().Ring)
		if err != nil {
			panic("reactor: " + err.Error())
		}
		global = r
	})

	return global
}

// New constructs a reactor with its own ring and driver goroutine. Prefer
// an explicit reactor value over Get where wiring allows.
func New(cfg config.Ring) (*Reactor, error) {
	ring, err := uring.New(cfg.Entries)
	if err != nil {
		return nil, err
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = ring.Close()
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Reactor{
		ring:            ring,
		pool:            objpool.New[userData](cfg.UserDataPoolSize),
		sem:             semaphore.NewWeighted(semCapacity),
		ctx:             ctx,
		cancel:          cancel,
		wakeFd:          wakeFd,
		submitThreshold: cfg.SubmitThreshold,
		stopped:         make(chan struct{}),
	}
	r.queue.Init()

	// drain the semaphore so that acquired permits equal queued pushes
	_ = r.sem.Acquire(context.Background(), semCapacity)

	r.accepting.Store(true)
	go r.drive()

	return r, nil
}

// Submit enqueues an operation for the driver. It returns true iff the
// driver is accepting work; false after RequestStop. Safe to call from any
// goroutine, including ones the driver has just woken.
func (r *Reactor) Submit(op *Operation) bool {
	if !r.accepting.Load() {
		return false
	}

	op.node.Value = op
	r.queue.Push(&op.node)
	r.sem.Release(1)

	if r.waiting.Load() {
		r.nudge()
	}

	return true
}

// RequestStop asks the driver to shut down: new submissions are refused,
// queued and in-flight ones complete first.
func (r *Reactor) RequestStop() {
	if !r.accepting.CompareAndSwap(true, false) {
		return
	}

	r.cancel()
	r.nudge()
}

// Run blocks until the driver has stopped and the ring is torn down.
func (r *Reactor) Run() {
	<-r.stopped
}

// Accepting reports whether Submit would currently be accepted.
func (r *Reactor) Accepting() bool {
	return r.accepting.Load()
}

func (r *Reactor) nudge() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, _ = unix.Write(r.wakeFd, one[:])
}

func (r *Reactor) drive() {
	defer close(r.stopped)

	r.armWakeup()

	for {
		stopping := r.ctx.Err() != nil

		n := 0
		if r.inflight == 0 && !stopping {
			// the kernel holds nothing for us: block until work arrives
			// or stop is requested
			if err := r.sem.Acquire(r.ctx, 1); err != nil {
				stopping = true
			} else {
				n = 1
			}
		}
		for n < r.submitThreshold && r.sem.TryAcquire(1) {
			n++
		}

		for ; n > 0; n-- {
			r.prepare(r.pop())
		}

		if r.inflight == 0 {
			if stopping {
				break
			}
			continue
		}

		// wait in the kernel for at least one completion, unless a
		// producer published more work after the batch was gathered; the
		// recheck after setting waiting closes the race against a
		// producer that read waiting=false right before we stored it
		r.waiting.Store(true)
		if r.sem.TryAcquire(1) {
			r.waiting.Store(false)
			r.sem.Release(1)
			_, _ = r.ring.Submit()
		} else {
			_, _ = r.ring.SubmitAndWait(1)
			r.waiting.Store(false)
		}

		r.reap()
	}

	_ = r.ring.Close()
	_ = unix.Close(r.wakeFd)
}

// pop retrieves one operation, spinning through the queue's transient
// inconsistent state: the semaphore guarantees an element is coming.
func (r *Reactor) pop() *Operation {
	for {
		if n := r.queue.Pop(); n != nil {
			return n.Value
		}
	}
}

// prepare maps one submission request onto the ring: a user-data block from
// the pool, an SQE populated by the awaiter, and for linked operations a
// second SQE carrying the timeout.
func (r *Reactor) prepare(op *Operation) {
	h := r.allocate(userData{kind: udIO, op: op})

	if !op.linked {
		sqe := r.getSQE()
		op.prepareFn(sqe)
		sqe.SetUserData(uint64(h))
		r.inflight++
		return
	}

	th := r.allocate(userData{kind: udTimeout, io: h})

	// both SQEs of a linked pair must reach the ring in one go; a flush
	// in between would break the link
	for r.ring.SQSpaceLeft() < 2 {
		_, _ = r.ring.Submit()
	}

	sqe := r.ring.GetSQE()
	op.prepareFn(sqe)
	sqe.SetUserData(uint64(h))
	sqe.SetFlags(uring.FlagIOLink)

	tsqe := r.ring.GetSQE()
	tsqe.PrepareLinkTimeout(&op.ts)
	tsqe.SetUserData(uint64(th))

	r.inflight += 2
}

// allocate spins on transient pool exhaustion. The driver is also the
// releaser, so reaping in the loop returns slots.
func (r *Reactor) allocate(d userData) objpool.Handle {
	for {
		h, ok := r.pool.Allocate(d)
		if ok {
			return h
		}

		_, _ = r.ring.SubmitAndWait(1)
		r.reap()
	}
}

func (r *Reactor) getSQE() *uring.SQE {
	for {
		if sqe := r.ring.GetSQE(); sqe != nil {
			return sqe
		}

		_, _ = r.ring.Submit()
	}
}

func (r *Reactor) armWakeup() {
	sqe := r.getSQE()
	sqe.PrepareRead(r.wakeFd, r.wakeReadBuf[:], 0)
	sqe.SetUserData(wakeupToken)
}

// reap consumes every currently available completion. I/O blocks deliver
// the result into the awaiter's slot and wake its goroutine right here, on
// the driver; timeout blocks are recognised and dropped.
func (r *Reactor) reap() {
	rearm := false

	for {
		cqe := r.ring.PeekCQE()
		if cqe == nil {
			break
		}

		data, res, flags := cqe.UserData, cqe.Res, cqe.Flags
		r.ring.SeenCQE()

		if data == wakeupToken {
			rearm = true
			continue
		}

		h := objpool.Handle(data)
		d := *r.pool.Get(h)
		r.pool.Release(h)
		r.inflight--

		if d.kind == udIO {
			d.op.result = Result{Res: res, Flags: flags}
			d.op.done <- struct{}{}
		}
	}

	if rearm {
		// flushed with the next enter
		r.armWakeup()
	}
}
