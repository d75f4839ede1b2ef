// Package cache is a two-tier content-addressed disk cache for raster
// payloads.
//
// The model tier holds raw super-resolution output keyed by source and scale
// factor; the final tier holds render-ready rasters keyed additionally by
// target size. Entries are immutable and idempotently overwritable, so
// concurrent writers racing to the same fingerprint converge without
// locking.
package cache

import (
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/joaorura/etdxpdf/internal/config"
)

// Tier selects one of the two cache levels.
type Tier string

const (
	TierModel Tier = "model"
	TierFinal Tier = "final"
)

// Store is the on-disk cache. In packaged deployments persistence is
// disabled entirely: Get always misses and Set and Clear are no-ops.
type Store struct {
	root        string
	persist     bool
	coordinator bool
}

// New creates a store rooted at dir and ensures the tier directories exist.
// coordinator marks the single process allowed to perform exit-time
// clearing; pooled workers must pass false.
func New(dir string, mode config.DeploymentMode, coordinator bool) (*Store, error) {
	s := &Store{
		root:        dir,
		persist:     mode != config.ModePackaged,
		coordinator: coordinator,
	}
	if !s.persist {
		return s, nil
	}
	for _, tier := range []Tier{TierModel, TierFinal} {
		if err := os.MkdirAll(s.tierDir(tier), 0o755); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) tierDir(tier Tier) string {
	return filepath.Join(s.root, string(tier))
}

func (s *Store) entryPath(tier Tier, fp Fingerprint) string {
	return filepath.Join(s.tierDir(tier), string(fp))
}

// Get returns the cached image for a fingerprint, or nil on miss. An entry
// that exists but fails to decode is deleted and treated as a miss.
func (s *Store) Get(tier Tier, fp Fingerprint) image.Image {
	if !s.persist {
		return nil
	}
	path := s.entryPath(tier, fp)
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		log.Printf("WARNING: corrupt %s cache entry %s, removing: %v", tier, fp, err)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("WARNING: failed to remove corrupt cache entry %s: %v", path, rmErr)
		}
		return nil
	}
	return img
}

// Set stores an image under a fingerprint. Invalid payloads are rejected
// with a log line; storage failures are logged and otherwise ignored, since
// a cache write must never fail a render.
func (s *Store) Set(tier Tier, fp Fingerprint, img image.Image) {
	if !s.persist {
		return
	}
	if img == nil || img.Bounds().Empty() {
		log.Printf("WARNING: refusing to store empty payload in %s cache under %s", tier, fp)
		return
	}

	path := s.entryPath(tier, fp)
	tmp, err := os.CreateTemp(s.tierDir(tier), string(fp)+".tmp*")
	if err != nil {
		log.Printf("WARNING: failed to create %s cache entry: %v", tier, err)
		return
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		log.Printf("WARNING: failed to encode %s cache entry: %v", tier, err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		log.Printf("WARNING: failed to close %s cache entry: %v", tier, err)
		return
	}
	// Whole-file rename keeps partial writes invisible to readers.
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		log.Printf("WARNING: failed to publish %s cache entry: %v", tier, err)
	}
}

// Clear wipes one tier, best effort, and recreates its empty root.
func (s *Store) Clear(tier Tier) {
	if !s.persist {
		return
	}
	dir := s.tierDir(tier)
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("WARNING: failed to recreate cache dir %s: %v", dir, err)
	}
}

// ClearAll wipes both tiers.
func (s *Store) ClearAll() {
	s.Clear(TierModel)
	s.Clear(TierFinal)
}

// ClearAllIfCoordinator wipes both tiers only from the designated
// coordinating process. Pooled workers calling this are a no-op, so a
// worker can never race the coordinator's cleanup.
func (s *Store) ClearAllIfCoordinator() {
	if !s.coordinator {
		return
	}
	s.ClearAll()
}
