package prefabs

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a burst of writes is collected before the changed
// files are reported, once each.
const Debounce = 100 * time.Millisecond

type ChangeKind uint8

const (
	ScenarioChanged ChangeKind = iota + 1
	ScriptChanged
)

func (k ChangeKind) String() string {
	switch k {
	case ScenarioChanged:
		return "scenario"
	case ScriptChanged:
		return "script"
	default:
		return "unknown"
	}
}

// Change is one edited prefab file. Name is the basename without extension,
// the form LoadScenario and LoadScript accept.
type Change struct {
	Kind    ChangeKind
	Name    string
	Path    string
	Removed bool
}

// Watcher reports edits to scenario and policy files.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan Change
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	pending := make(map[string]Change)
	var flush <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			c, ok := classify(event)
			if !ok {
				continue
			}
			pending[c.Path] = c
			if flush == nil {
				flush = time.After(Debounce)
			}
		case <-flush:
			flush = nil
			if !w.emit(pending) {
				return
			}
			clear(pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// emit sends pending in path order. It reports false once the watcher is
// closing.
func (w *Watcher) emit(pending map[string]Change) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		select {
		case w.Events <- pending[p]:
		case <-w.closeCh:
			return false
		}
	}
	return true
}

func classify(event fsnotify.Event) (Change, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return Change{}, false
	}
	var kind ChangeKind
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".yaml", ".yml":
		kind = ScenarioChanged
	case ".tengo":
		kind = ScriptChanged
	default:
		return Change{}, false
	}
	base := filepath.Base(event.Name)
	return Change{
		Kind:    kind,
		Name:    strings.TrimSuffix(base, filepath.Ext(base)),
		Path:    event.Name,
		Removed: event.Op&(fsnotify.Remove|fsnotify.Rename) != 0,
	}, true
}
