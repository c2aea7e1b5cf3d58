package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/profile"
)

func openTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.json")
	l, err := OpenLibrary(zap.NewNop(), path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestOpenLibraryCreatesDefault(t *testing.T) {
	l, path := openTestLibrary(t)

	assert.Equal(t, "Default", l.ActiveName())
	assert.Equal(t, []string{"Default"}, l.Names())

	// The default library was persisted immediately.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var file libraryFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, libraryVersion, file.Version)
	assert.Contains(t, file.Profiles, "Default")
}

func TestLibraryRoundTrip(t *testing.T) {
	l, path := openTestLibrary(t)

	p := profile.NewProfile("Studio")
	p.Layers[0].Mappings[device.Grid(1, 1)] = profile.NewPadMapping("ctrl+c")
	require.NoError(t, l.Put(p))
	_, err := l.SetActive("Studio")
	require.NoError(t, err)
	require.NoError(t, l.SaveNow())

	again, err := OpenLibrary(zap.NewNop(), path)
	require.NoError(t, err)
	defer again.Close()

	assert.Equal(t, "Studio", again.ActiveName())
	got, ok := again.Get("Studio")
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestLibraryPutValidates(t *testing.T) {
	l, _ := openTestLibrary(t)

	bad := profile.NewProfile("Bad")
	bad.Layers[0].Mappings[device.Grid(1, 1)] = profile.NewPadMapping("hyper+x")
	assert.Error(t, l.Put(bad))
}

func TestLibraryReturnsCopies(t *testing.T) {
	l, _ := openTestLibrary(t)

	p := l.Active()
	p.Layers[0].Mappings[device.Grid(1, 1)] = profile.NewPadMapping("a")

	fresh := l.Active()
	assert.NotContains(t, fresh.Layers[0].Mappings, device.Grid(1, 1))
}

func TestLibraryDelete(t *testing.T) {
	l, _ := openTestLibrary(t)

	require.NoError(t, l.Put(profile.NewProfile("Other")))
	assert.Error(t, l.Delete("Default"), "active profile is protected")
	assert.Error(t, l.Delete("Missing"))
	require.NoError(t, l.Delete("Other"))
	assert.Equal(t, []string{"Default"}, l.Names())
}

func TestLibrarySetActiveUnknown(t *testing.T) {
	l, _ := openTestLibrary(t)
	_, err := l.SetActive("Nope")
	assert.Error(t, err)
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	require.NoError(t, atomicWrite(path, []byte(`{"version":1}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "profiles.json", entries[0].Name())
}

func TestLibraryWatchReloadsExternalEdit(t *testing.T) {
	l, path := openTestLibrary(t)

	reloaded := make(chan *profile.Profile, 1)
	require.NoError(t, l.Watch(func(p *profile.Profile) {
		select {
		case reloaded <- p:
		default:
		}
	}))

	// Simulate an external editor rewriting the file. The edit must land
	// outside the self-write grace window.
	time.Sleep(selfWriteGrace + 100*time.Millisecond)

	edited := profile.NewProfile("Edited")
	raw, err := profile.Export(edited)
	require.NoError(t, err)
	file := libraryFile{
		Version:       libraryVersion,
		ActiveProfile: "Edited",
		Profiles:      map[string]json.RawMessage{"Edited": raw},
	}
	data, err := json.MarshalIndent(file, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	select {
	case p := <-reloaded:
		assert.Equal(t, "Edited", p.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
	assert.Equal(t, "Edited", l.ActiveName())
}

func TestLibraryRejectsMalformedExternalEdit(t *testing.T) {
	l, path := openTestLibrary(t)

	require.NoError(t, l.Watch(func(*profile.Profile) {}))
	time.Sleep(selfWriteGrace + 100*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	time.Sleep(200 * time.Millisecond)

	// The in-memory library keeps its last good state.
	assert.Equal(t, "Default", l.ActiveName())
}
