package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lyricpane/internal/config"
	"lyricpane/internal/track"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	return d
}

func TestDiskRoundTrip(t *testing.T) {
	d := newTestDisk(t)
	ctx := context.Background()

	lyrics := "Hello, it's me\nI was wondering"
	if err := d.Put(ctx, "Adele", "Hello", lyrics); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := d.Get(ctx, "Adele", "Hello")
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if got != lyrics {
		t.Errorf("Get returned %q, expected %q", got, lyrics)
	}

	// Casing/whitespace variants address the same entry.
	got, ok = d.Get(ctx, " adele ", "HELLO")
	if !ok || got != lyrics {
		t.Errorf("normalized variant: got (%q, %v), expected hit with original lyrics", got, ok)
	}
}

func TestDiskMissOnUnseenTrack(t *testing.T) {
	d := newTestDisk(t)

	if got, ok := d.Get(context.Background(), "Nobody", "Nothing"); ok {
		t.Errorf("expected miss for unseen track, got %q", got)
	}
}

func TestDiskCorruptEntryIsMiss(t *testing.T) {
	d := newTestDisk(t)
	ctx := context.Background()

	key := track.Key("Adele", "Hello")
	path := filepath.Join(d.dir, key+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt entry: %v", err)
	}

	if got, ok := d.Get(ctx, "Adele", "Hello"); ok {
		t.Errorf("expected corrupt entry to be a miss, got %q", got)
	}
}

func TestDiskPutOverwrites(t *testing.T) {
	d := newTestDisk(t)
	ctx := context.Background()

	if err := d.Put(ctx, "Adele", "Hello", "first"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Put(ctx, "Adele", "Hello", "second"); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, ok := d.Get(ctx, "Adele", "Hello")
	if !ok || got != "second" {
		t.Errorf("Get after overwrite = (%q, %v), expected (\"second\", true)", got, ok)
	}
}

func TestDiskEntryShape(t *testing.T) {
	d := newTestDisk(t)
	ctx := context.Background()

	if err := d.Put(ctx, "Adele", "Hello", "text"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	key := track.Key("Adele", "Hello")
	data, err := os.ReadFile(filepath.Join(d.dir, key+".json"))
	if err != nil {
		t.Fatalf("failed to read entry file: %v", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("entry file is not valid JSON: %v", err)
	}
	if entry.Key != key {
		t.Errorf("entry key = %s, expected %s", entry.Key, key)
	}
	if entry.FetchedAt.IsZero() {
		t.Error("entry fetched_at is zero")
	}

	// No stray temp files after a successful write.
	matches, _ := filepath.Glob(filepath.Join(d.dir, "*.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFactoryDefaultsToDisk(t *testing.T) {
	store, err := New(config.CacheConfig{Dir: t.TempDir()}, config.RedisConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := store.(*Disk); !ok {
		t.Errorf("expected disk backend for empty backend name, got %T", store)
	}

	if _, err := New(config.CacheConfig{Backend: "bogus"}, config.RedisConfig{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
