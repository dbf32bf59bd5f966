// Package watch turns structural mutation events into debounced rescans.
package watch

import (
	"log/slog"
	"sync"
	"time"

	"tickermark/internal/doc"
)

// DefaultDelay is the quiet period before a rescan runs.
const DefaultDelay = 500 * time.Millisecond

// Source publishes document mutations, filtered before buffering.
type Source interface {
	SubscribeFunc(bufSize int, keep func(doc.Mutation) bool) (int, <-chan doc.Mutation)
	Unsubscribe(id int)
}

// Watcher coalesces qualifying mutations into at most one rescan per quiet
// period. The rescan is handed to post, which runs it on the page loop.
type Watcher struct {
	delay  time.Duration
	post   func(func())
	rescan func()
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	src     Source
	subID   int
	done    chan struct{}
	timer   *time.Timer
	seq     uint64 // bumped on every arm and on Stop
}

// New creates a stopped Watcher. A non-positive delay means DefaultDelay.
func New(delay time.Duration, post func(func()), rescan func(), log *slog.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{delay: delay, post: post, rescan: rescan, log: log}
}

// Qualifies reports whether m should trigger a rescan: a host-originated
// child-list change that added at least one node.
func Qualifies(m doc.Mutation) bool {
	return m.Kind == doc.MutationChildList && m.Origin == doc.OriginHost && len(m.Added) > 0
}

// Start subscribes to src. Starting a running watcher is a no-op.
func (w *Watcher) Start(src Source) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	id, ch := src.SubscribeFunc(256, Qualifies)
	w.running = true
	w.src = src
	w.subID = id
	w.done = make(chan struct{})
	go w.consume(ch, w.done)
	w.log.Debug("mutation watcher started", "delay", w.delay)
}

// Stop unsubscribes and cancels any pending rescan. It is safe to call when
// the watcher was never started and to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	src, id, done := w.src, w.subID, w.done
	w.src = nil
	w.mu.Unlock()

	src.Unsubscribe(id)
	<-done
	w.log.Debug("mutation watcher stopped")
}

// Running reports whether the watcher is subscribed.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Notify feeds one mutation to the watcher, (re)arming the debounce timer
// when it qualifies.
func (w *Watcher) Notify(m doc.Mutation) {
	if !Qualifies(m) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.timer = time.AfterFunc(w.delay, func() { w.fire(seq) })
}

func (w *Watcher) consume(ch <-chan doc.Mutation, done chan struct{}) {
	defer close(done)
	for m := range ch {
		w.Notify(m)
	}
}

func (w *Watcher) fire(seq uint64) {
	if !w.current(seq) {
		return
	}
	w.post(func() {
		// Stop may have run between the timer and the loop.
		if !w.current(seq) {
			return
		}
		w.rescan()
	})
}

func (w *Watcher) current(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && w.seq == seq
}
