package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/profile"
)

const (
	libraryVersion = 1
	saveDebounce   = time.Second
	// External-edit events arriving this soon after our own write are
	// echoes of the rename and get ignored.
	selfWriteGrace = 500 * time.Millisecond
)

// libraryFile is the on-disk shape of profiles.json. Each profile keeps
// its own record format, so the library only handles the envelope.
type libraryFile struct {
	Version       int                        `json:"version"`
	ActiveProfile string                     `json:"active_profile"`
	Profiles      map[string]json.RawMessage `json:"profiles"`
}

// Library holds every saved profile and persists them to profiles.json
// with debounced, atomic writes. External edits to the file are picked up
// through fsnotify and handed to the reload callback.
type Library struct {
	log  *zap.Logger
	path string

	mu       sync.Mutex
	profiles map[string]*profile.Profile
	active   string

	saveTimer *time.Timer
	lastWrite time.Time

	watcher  *fsnotify.Watcher
	onReload func(*profile.Profile)
	stopOnce sync.Once
	stop     chan struct{}
}

// ProfilesPath returns the full path to profiles.json.
func ProfilesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.json"), nil
}

// OpenLibrary loads profiles.json from path, creating a library with one
// default profile when the file does not exist.
func OpenLibrary(log *zap.Logger, path string) (*Library, error) {
	l := &Library{
		log:      log.Named("store"),
		path:     path,
		profiles: map[string]*profile.Profile{},
		stop:     make(chan struct{}),
	}
	if err := l.loadFromDisk(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		p := profile.NewProfile("Default")
		l.profiles[p.Name] = p
		l.active = p.Name
		if err := l.saveNow(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Library) loadFromDisk() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	var file libraryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("store: malformed %s: %w", l.path, err)
	}

	profiles := map[string]*profile.Profile{}
	for name, raw := range file.Profiles {
		p, err := profile.Import(raw)
		if err != nil {
			return fmt.Errorf("store: profile %q: %w", name, err)
		}
		profiles[name] = p
	}
	if len(profiles) == 0 {
		p := profile.NewProfile("Default")
		profiles[p.Name] = p
		file.ActiveProfile = p.Name
	}
	if _, ok := profiles[file.ActiveProfile]; !ok {
		for name := range profiles {
			file.ActiveProfile = name
			break
		}
	}

	l.mu.Lock()
	l.profiles = profiles
	l.active = file.ActiveProfile
	l.mu.Unlock()
	return nil
}

// Active returns a deep copy of the active profile.
func (l *Library) Active() *profile.Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profiles[l.active].Clone()
}

// ActiveName returns the active profile's name.
func (l *Library) ActiveName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Names lists every stored profile name, sorted.
func (l *Library) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.profiles))
	for name := range l.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a deep copy of a stored profile.
func (l *Library) Get(name string) (*profile.Profile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.profiles[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Put stores a profile under its name and schedules a save.
func (l *Library) Put(p *profile.Profile) error {
	if err := profile.ValidateProfile(p); err != nil {
		return err
	}
	l.mu.Lock()
	l.profiles[p.Name] = p.Clone()
	l.mu.Unlock()
	l.ScheduleSave()
	return nil
}

// Delete removes a stored profile. The active profile cannot be deleted.
func (l *Library) Delete(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == l.active {
		return fmt.Errorf("store: cannot delete active profile %q", name)
	}
	if _, ok := l.profiles[name]; !ok {
		return fmt.Errorf("store: no profile %q", name)
	}
	delete(l.profiles, name)
	l.scheduleSaveLocked()
	return nil
}

// SetActive switches the active profile and returns a copy of it.
func (l *Library) SetActive(name string) (*profile.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.profiles[name]
	if !ok {
		return nil, fmt.Errorf("store: no profile %q", name)
	}
	l.active = name
	l.scheduleSaveLocked()
	return p.Clone(), nil
}

// ScheduleSave coalesces bursts of changes into one disk write.
func (l *Library) ScheduleSave() {
	l.mu.Lock()
	l.scheduleSaveLocked()
	l.mu.Unlock()
}

func (l *Library) scheduleSaveLocked() {
	if l.saveTimer != nil {
		l.saveTimer.Reset(saveDebounce)
		return
	}
	l.saveTimer = time.AfterFunc(saveDebounce, func() {
		if err := l.saveNow(); err != nil {
			l.log.Error("save failed", zap.Error(err))
		}
	})
}

// SaveNow flushes the library to disk immediately.
func (l *Library) SaveNow() error { return l.saveNow() }

func (l *Library) saveNow() error {
	l.mu.Lock()
	if l.saveTimer != nil {
		l.saveTimer.Stop()
		l.saveTimer = nil
	}
	file := libraryFile{
		Version:       libraryVersion,
		ActiveProfile: l.active,
		Profiles:      map[string]json.RawMessage{},
	}
	for name, p := range l.profiles {
		raw, err := profile.Export(p)
		if err != nil {
			l.mu.Unlock()
			return err
		}
		file.Profiles[name] = raw
	}
	l.lastWrite = time.Now()
	l.mu.Unlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(l.path, data)
}

// atomicWrite lands data via a temp file and rename so a crash mid-write
// never leaves a truncated profiles.json.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".profiles-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Watch starts an fsnotify watcher on profiles.json. When an external
// edit lands, the file is re-read and the new active profile is handed to
// onReload. Our own atomic writes are filtered out by timestamp.
func (l *Library) Watch(onReload func(*profile.Profile)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return err
	}
	l.watcher = watcher
	l.onReload = onReload

	go func() {
		for {
			select {
			case <-l.stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != l.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				l.mu.Lock()
				recent := time.Since(l.lastWrite) < selfWriteGrace
				l.mu.Unlock()
				if recent {
					continue
				}
				l.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.log.Warn("watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (l *Library) reload() {
	if err := l.loadFromDisk(); err != nil {
		l.log.Warn("external edit rejected", zap.Error(err))
		return
	}
	l.log.Info("profiles reloaded from disk")
	if l.onReload != nil {
		l.onReload(l.Active())
	}
}

// Close stops the watcher and flushes any pending save.
func (l *Library) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	if l.watcher != nil {
		l.watcher.Close()
	}
	return l.saveNow()
}
