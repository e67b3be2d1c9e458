package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()
	cfg.CleanupInterval = 0
	return cfg
}

func speech(n int) Entry {
	// repetitive data compresses well
	return Entry{Data: bytes.Repeat([]byte("RIFF-wave-"), n), MIME: "audio/wav"}
}

func TestDiskCache_CompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}

	in := speech(500)
	if err := dc.Put("k", in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if dc.Size() >= int64(len(in.Data)) {
		t.Errorf("Size() = %d, expected compression below %d", dc.Size(), len(in.Data))
	}

	out, ok := dc.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(out.Data, in.Data) || out.MIME != "audio/wav" {
		t.Error("payload changed during round trip")
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// the index survives a restart
	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if out, ok := reopened.Get("k"); !ok || !bytes.Equal(out.Data, in.Data) {
		t.Error("entry lost after reopening")
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 250, 0)
	if err != nil {
		t.Fatal(err)
	}

	_ = dc.Put("a", Entry{Data: make([]byte, 100)})
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("b", Entry{Data: make([]byte, 100)})
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("c", Entry{Data: make([]byte, 100)})

	if _, ok := dc.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if dc.Size() > 250 {
		t.Errorf("Size() = %d exceeds capacity", dc.Size())
	}
	if err := dc.Put("huge", Entry{Data: make([]byte, 300)}); err != ErrItemTooLarge {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_MissingFile(t *testing.T) {
	dir := t.TempDir()
	dc, _ := NewDiskCache(dir, 1<<20, 0)
	_ = dc.Put("k", Entry{Data: []byte("abc")})

	if err := os.Remove(filepath.Join(dir, fileName("k"))); err != nil {
		t.Fatal(err)
	}
	if _, ok := dc.Get("k"); ok {
		t.Error("expected miss when the cache file is gone")
	}
	if dc.Size() != 0 {
		t.Errorf("Size() = %d after dropping the entry", dc.Size())
	}
}

func TestManager_CacheHierarchy(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManager(cfg, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close() //nolint:errcheck

	key := Key("hello", "2")
	if _, ok := m.Get(key); ok {
		t.Fatal("expected miss")
	}
	if err := m.Put(key, speech(10)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// served from memory
	if _, ok := m.Get(key); !ok {
		t.Fatal("expected hit")
	}

	// drop L1 so the disk copy is used and promoted
	m.l1.Clear()
	if _, ok := m.Get(key); !ok {
		t.Fatal("expected disk hit")
	}
	if _, ok := m.l1.Get(key); !ok {
		t.Error("disk hit was not promoted to memory")
	}

	s := m.Stats()
	if s.L1Hits != 1 || s.L2Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.String() == "" {
		t.Error("empty stats summary")
	}
}

func TestManager_DeleteAndClear(t *testing.T) {
	m, err := NewManager(testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close() //nolint:errcheck

	a, b := Key("a", "1"), Key("b", "2")
	for _, k := range []string{a, b} {
		if err := m.Put(k, speech(10)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	m.Delete(a)
	if _, ok := m.Get(a); ok {
		t.Error("deleted key still served")
	}
	if _, ok := m.l2.Get(a); ok {
		t.Error("deleted key still on disk")
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	s := m.Stats()
	if s.Memory.ItemCount != 0 || s.Disk.ItemCount != 0 || s.Disk.Size != 0 {
		t.Errorf("stats after Clear = %+v", s)
	}
	if _, ok := m.Get(b); ok {
		t.Error("cleared key still served")
	}
}

func TestManager_TTLCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTL = 10 * time.Millisecond
	m, _ := NewManager(cfg, nil)
	defer m.Close() //nolint:errcheck

	_ = m.Put("k", speech(1))
	time.Sleep(20 * time.Millisecond)
	m.performCleanup()

	if _, ok := m.Get("k"); ok {
		t.Error("expired entry still cached")
	}
}

func TestManager_RequiresDirectory(t *testing.T) {
	if _, err := NewManager(DefaultConfig(), nil); err == nil {
		t.Error("expected error without a cache directory")
	}
}

func TestKey(t *testing.T) {
	if Key("hi", "1") == Key("hi", "2") {
		t.Error("speaker must be part of the key")
	}
	if Key("hi", "1") != Key("hi", "1") {
		t.Error("keys must be stable")
	}
	if len(Key("hi", "1")) != 32 {
		t.Errorf("unexpected key length %d", len(Key("hi", "1")))
	}
}
