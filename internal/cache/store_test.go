package cache

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/joaorura/etdxpdf/internal/config"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 37), uint8(y * 53), 128, 255})
		}
	}
	return img
}

func newTestStore(t *testing.T, mode config.DeploymentMode) *Store {
	t.Helper()
	s, err := New(t.TempDir(), mode, true)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t, config.ModeInteractive)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	if got := s.Get(TierModel, fp); got != nil {
		t.Fatal("expected miss on empty store")
	}

	want := testImage(20, 15)
	s.Set(TierModel, fp, want)

	got := s.Get(TierModel, fp)
	if got == nil {
		t.Fatal("expected hit after Set")
	}
	if got.Bounds().Dx() != 20 || got.Bounds().Dy() != 15 {
		t.Errorf("got %v, want 20x15", got.Bounds())
	}
}

func TestStoreTiersAreIndependent(t *testing.T) {
	s := newTestStore(t, config.ModeInteractive)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	s.Set(TierModel, fp, testImage(8, 8))
	if s.Get(TierFinal, fp) != nil {
		t.Error("final tier returned a model tier entry")
	}
}

func TestStoreRejectsEmptyPayload(t *testing.T) {
	s := newTestStore(t, config.ModeInteractive)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	s.Set(TierModel, fp, nil)
	s.Set(TierModel, fp, image.NewRGBA(image.Rect(0, 0, 0, 0)))

	if s.Get(TierModel, fp) != nil {
		t.Error("empty payload was stored")
	}
}

func TestStoreSelfHealsCorruptEntry(t *testing.T) {
	s := newTestStore(t, config.ModeInteractive)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	path := filepath.Join(s.Root(), string(TierModel), string(fp))
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("plant corrupt entry: %v", err)
	}

	if s.Get(TierModel, fp) != nil {
		t.Fatal("corrupt entry decoded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry was not removed")
	}

	// A fresh write must succeed after healing.
	s.Set(TierModel, fp, testImage(4, 4))
	if s.Get(TierModel, fp) == nil {
		t.Error("store unusable after healing corrupt entry")
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t, config.ModeInteractive)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	s.Set(TierModel, fp, testImage(4, 4))
	s.Set(TierFinal, fp, testImage(4, 4))

	s.Clear(TierModel)
	if s.Get(TierModel, fp) != nil {
		t.Error("model tier survived Clear")
	}
	if s.Get(TierFinal, fp) == nil {
		t.Error("final tier wiped by model tier Clear")
	}

	s.ClearAll()
	if s.Get(TierFinal, fp) != nil {
		t.Error("final tier survived ClearAll")
	}
}

func TestStoreCoordinatorGate(t *testing.T) {
	dir := t.TempDir()
	coordinator, err := New(dir, config.ModeInteractive, true)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	worker, err := New(dir, config.ModeInteractive, false)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	coordinator.Set(TierModel, fp, testImage(4, 4))
	worker.ClearAllIfCoordinator()
	if coordinator.Get(TierModel, fp) == nil {
		t.Fatal("worker cleared the shared cache")
	}

	coordinator.ClearAllIfCoordinator()
	if coordinator.Get(TierModel, fp) != nil {
		t.Error("coordinator failed to clear the shared cache")
	}
}

func TestPackagedModeDisablesPersistence(t *testing.T) {
	s := newTestStore(t, config.ModePackaged)
	fp := ModelFingerprint(SyntheticIdentity("page_1"), 2)

	s.Set(TierModel, fp, testImage(4, 4))
	if s.Get(TierModel, fp) != nil {
		t.Error("packaged mode persisted an entry")
	}

	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatalf("read cache root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("packaged mode wrote %d entries to disk", len(entries))
	}
}
