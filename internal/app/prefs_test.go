package app

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestPrefsDefaultsWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ps, err := OpenPrefStore(nil, path, true)
	if err != nil {
		t.Fatalf("OpenPrefStore: %v", err)
	}
	defer ps.Close()

	if !ps.SoundEnabled() {
		t.Fatal("SoundEnabled should follow the default when nothing is stored")
	}
	if ps.Layout() != nil {
		t.Fatal("Layout should be nil when nothing is stored")
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ps, err := OpenPrefStore(nil, path, true)
	if err != nil {
		t.Fatalf("OpenPrefStore: %v", err)
	}

	if err := ps.SetSoundEnabled(false); err != nil {
		t.Fatalf("SetSoundEnabled: %v", err)
	}
	layout := json.RawMessage(`{"panels":["positions","alerts"]}`)
	if err := ps.SetLayout(layout); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	if err := ps.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Stored values win over the default on reopen.
	ps2, err := OpenPrefStore(nil, path, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ps2.Close()

	if ps2.SoundEnabled() {
		t.Fatal("SoundEnabled should be false after reopen")
	}
	if string(ps2.Layout()) != string(layout) {
		t.Fatalf("Layout = %s, want %s", ps2.Layout(), layout)
	}
}

func TestPrefsOpenFailsOnBadPath(t *testing.T) {
	_, err := OpenPrefStore(nil, filepath.Join(t.TempDir(), "missing", "prefs.db"), true)
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
