// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	notify "github.com/fsnotify/fsnotify"
	log "github.com/hpe-storage/service-host-libs/logger"
)

// DefaultSettleTime is how long the watcher waits for a burst of writes to finish
const DefaultSettleTime = 500 * time.Millisecond

// Watcher reloads the configuration file whenever it changes
type Watcher struct {
	// Configuration file being watched
	path string
	// Channel to receive the stop event.
	watchStop chan struct{}
	// fsnotify watcher.
	watchList *notify.Watcher
	// Called with every successfully reloaded file
	onChange func(*File)
	// Time to let spurious updates settle
	settle time.Duration
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher watches path, calling onChange with the reloaded configuration.  The directory is
// watched rather than the file so that editors replacing the file are noticed.
func NewWatcher(path string, onChange func(*File)) (*Watcher, error) {
	log.Tracef(">>>>> NewWatcher, path=%s", path)
	defer log.Trace("<<<<< NewWatcher")

	if path == "" {
		return nil, fmt.Errorf("a configuration file is required to watch")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := notify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, err
	}
	return &Watcher{
		path:      absPath,
		watchStop: make(chan struct{}),
		watchList: watcher,
		onChange:  onChange,
		settle:    DefaultSettleTime,
	}, nil
}

// Start serves change notifications until Stop is called
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	pid := os.Getpid()
	log.Tracef("Watcher [%d PID] successfully started for %s", pid, w.path)
	for {
		select {
		case <-w.watchStop:
			log.Infof("Stopping [%d PID] configuration watcher", pid)
			return
		case err, ok := <-w.watchList.Errors:
			if !ok {
				return
			}
			log.Warnf("configuration watcher error, err=%v", err)
		case event, ok := <-w.watchList.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(notify.Write|notify.Create|notify.Rename) == 0 {
				continue
			}
			// Editors write in several steps; let them finish
			time.Sleep(w.settle)
			w.drain()
			w.reload()
		}
	}
}

func (w *Watcher) drain() {
	for {
		select {
		case <-w.watchList.Events:
		default:
			return
		}
	}
}

func (w *Watcher) reload() {
	file, err := Load(w.path)
	if err != nil {
		log.Errorf("unable to reload %s, keeping the current configuration, err=%v", w.path, err)
		return
	}
	log.Infof("configuration %s reloaded", w.path)
	if w.onChange != nil {
		w.onChange(file)
	}
}

// Stop ends the watch and waits for the watcher goroutine to exit
func (w *Watcher) Stop() {
	log.Trace(">>>>> Stop")
	defer log.Trace("<<<<< Stop")
	w.once.Do(func() {
		close(w.watchStop)
		w.wg.Wait()
		w.watchList.Close()
	})
}

// ApplyLogLevel is an onChange callback that applies the reloaded log level
func ApplyLogLevel(file *File) {
	if err := log.SetLevel(file.Log.GetLevel()); err != nil {
		log.Warnf("unable to apply log level %s, err=%v", file.Log.Level, err)
	}
}
