// Package watch reports changes to post trees
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rjeczalik/notify"
)

// Settle is how long a tree must be quiet before changes are reported
const Settle = 25 * time.Millisecond

// A Watcher receives notifications of changes
type Watcher interface {
	Changed(evs Events)
}

// WatcherFunc adapts a function to a Watcher
type WatcherFunc func(evs Events)

// Changed implements Watcher
func (fn WatcherFunc) Changed(evs Events) { fn(evs) }

// Watch wraps file system watchers and batches their events. Bursts of
// events are delivered together once the watched trees settle.
type Watch struct {
	evs      chan notify.EventInfo
	watchers chan Watcher
	done     chan struct{}
}

// New creates a new Watch that monitors the given directory trees
func New(dirs ...string) (*Watch, error) {
	w := &Watch{
		evs:      make(chan notify.EventInfo, 16),
		watchers: make(chan Watcher, 1),
		done:     make(chan struct{}),
	}

	for _, dir := range dirs {
		err := notify.Watch(filepath.Join(dir, "..."), w.evs, notify.All)
		if err != nil {
			notify.Stop(w.evs)
			return nil, fmt.Errorf("failed to watch %q: %v", dir, err)
		}
	}

	go w.run()
	return w, nil
}

// Notify notifies the given Watcher of changes as they happen
func (w *Watch) Notify(wr Watcher) {
	if wr != nil {
		w.watchers <- wr
	}
}

// Stop terminates this instance
func (w *Watch) Stop() {
	notify.Stop(w.evs)
	close(w.done)
}

func (w *Watch) run() {
	delay := time.NewTimer(time.Hour)
	delay.Stop()

	var evs Events
	var watchers []Watcher

	for {
		select {
		case <-w.done:
			delay.Stop()
			return

		case wr := <-w.watchers:
			watchers = append(watchers, wr)

		case ev := <-w.evs:
			evs = append(evs, ev)
			delay.Reset(Settle)

		case <-delay.C:
			for _, wr := range watchers {
				wr.Changed(evs)
			}

			evs = nil
		}
	}
}

// Events is a collection of change events
type Events []notify.EventInfo

// HasExt checks if any event path has the given extension
func (evs Events) HasExt(ext string) bool {
	for _, ev := range evs {
		if filepath.Ext(ev.Path()) == ext {
			return true
		}
	}

	return false
}

// Paths lists the distinct paths that changed, in event order
func (evs Events) Paths() []string {
	var paths []string
	seen := make(map[string]struct{})

	for _, ev := range evs {
		path := ev.Path()
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			paths = append(paths, path)
		}
	}

	return paths
}
