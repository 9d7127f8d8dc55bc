package watch

import (
	"github.com/fsnotify/fsnotify"
)

// EventSource delivers paths of files created in a watched folder.
// Delivery is at-least-once; the consumer tolerates repeats and paths that
// vanished before they were handled.
type EventSource interface {
	Events() <-chan string
	Errors() <-chan error
	Close() error
}

// SourceFactory subscribes to dir.
type SourceFactory func(dir string) (EventSource, error)

// fsnotifySource narrows an fsnotify watcher to create notifications.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	events  chan string
	done    chan struct{}
}

// NewFSNotifySource watches dir, non-recursively, for created files.
func NewFSNotifySource(dir string) (EventSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	src := &fsnotifySource{
		watcher: watcher,
		events:  make(chan string),
		done:    make(chan struct{}),
	}
	go src.run()
	return src, nil
}

func (s *fsnotifySource) run() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			// A rename into the folder arrives as Create on Linux.
			if !event.Has(fsnotify.Create) {
				continue
			}
			select {
			case s.events <- event.Name:
			case <-s.done:
				return
			}
		}
	}
}

func (s *fsnotifySource) Events() <-chan string { return s.events }

func (s *fsnotifySource) Errors() <-chan error { return s.watcher.Errors }

func (s *fsnotifySource) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	return s.watcher.Close()
}
