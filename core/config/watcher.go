// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watcher calls onChange after the config file was written or replaced.
// Bursts of events are folded into one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	onError  func(error)
	debounce *time.Timer
	lock     sync.Mutex
	done     chan struct{}
}

func Watch(path string, onChange func(), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files by rename, so the directory is watched.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{watcher: fw, path: filepath.Clean(path), onChange: onChange, onError: onError, done: make(chan struct{})}
	go w.worker()
	return w, nil
}

func (w *Watcher) worker() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.requestReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) requestReload() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.debounce != nil {
		w.debounce.Reset(watchDebounce)
		return
	}
	w.debounce = time.AfterFunc(watchDebounce, w.onChange)
}

func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	w.lock.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.lock.Unlock()
	return err
}
