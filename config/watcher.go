package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/solexious/LUMOS-Code/util"
)

// ReloadDelay collapses the burst of events a single save produces.
const ReloadDelay = 150 * time.Millisecond

// Watcher reloads the config file when it changes and publishes every valid
// new record. An invalid file is logged and the previous record stays
// current.
type Watcher struct {
	cfile    string
	current  *util.Latest[*Config]
	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher watches the directory of cfile, editors often replace the file
// instead of writing it.
func NewWatcher(cfile string, initial *Config) (*Watcher, error) {
	abs, err := filepath.Abs(cfile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't resolve %s", cfile)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "can't create file watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "can't watch %s", filepath.Dir(abs))
	}
	return &Watcher{
		cfile:    abs,
		current:  util.NewLatest(initial),
		fsw:      fsw,
		stopChan: make(chan struct{}),
	}, nil
}

// Current gives access to the latest valid record.
func (w *Watcher) Current() *util.Latest[*Config] {
	return w.current
}

func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	reload := time.NewTimer(ReloadDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.cfile {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				slog.Debug("Config file changed", "file", w.cfile, "op", ev.Op.String())
				reload.Reset(ReloadDelay)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		case <-reload.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	conf, err := ReadConfig(w.cfile)
	if err != nil {
		slog.Error("Config reload failed, keeping the previous configuration", "file", w.cfile, "error", err)
		return
	}
	w.current.Publish(conf)
	slog.Info("Config reloaded", "file", w.cfile, "node", conf.Node.Name, "revision", w.current.Revision())
}
