package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// Identity names a cacheable source. Real sources are backed by a file and
// include size and mtime in their digest so edits invalidate entries;
// synthetic sources (generated page rasters with no backing file) are named
// by a symbolic string only.
type Identity struct {
	Name      string
	Synthetic bool
}

// FileIdentity addresses a source raster on disk.
func FileIdentity(path string) Identity {
	return Identity{Name: path}
}

// SyntheticIdentity addresses a generated raster with no backing file.
func SyntheticIdentity(name string) Identity {
	return Identity{Name: name, Synthetic: true}
}

// Fingerprint is a fixed-width content digest used for cache addressing.
// It is not a security primitive.
type Fingerprint string

func sum(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// fileParts returns the digests of a file identity's path and metadata. The
// metadata digest is empty when the file does not exist: the fingerprint then
// covers path and parameters only, matching entries written before deletion.
func fileParts(path string) (pathHash, metaHash string) {
	pathHash = sum(path)
	if info, err := os.Stat(path); err == nil {
		metaHash = sum(fmt.Sprintf("%d_%d", info.Size(), info.ModTime().UnixNano()))
	}
	return pathHash, metaHash
}

// ModelFingerprint digests (source identity, scale factor). The target size
// is deliberately excluded so one raw-upscaled result serves every output
// size.
func ModelFingerprint(id Identity, factor int) Fingerprint {
	if id.Synthetic {
		return Fingerprint(sum(id.Name + "_" + strconv.Itoa(factor)))
	}
	pathHash, metaHash := fileParts(id.Name)
	scaleHash := sum(strconv.Itoa(factor))
	if metaHash == "" {
		return Fingerprint(sum(pathHash + "_" + scaleHash))
	}
	return Fingerprint(sum(pathHash + "_" + metaHash + "_" + scaleHash))
}

// FinalFingerprint digests (source identity, scale factor, target output
// size), addressing a fully resized render-ready raster.
func FinalFingerprint(id Identity, factor int, targetW, targetH int) Fingerprint {
	sizeHash := sum(fmt.Sprintf("%d_%d", targetW, targetH))
	if id.Synthetic {
		return Fingerprint(sum(id.Name + "_" + strconv.Itoa(factor) + "_" + sizeHash))
	}
	pathHash, metaHash := fileParts(id.Name)
	scaleHash := sum(strconv.Itoa(factor))
	if metaHash == "" {
		return Fingerprint(sum(pathHash + "_" + scaleHash + "_" + sizeHash))
	}
	return Fingerprint(sum(pathHash + "_" + metaHash + "_" + scaleHash + "_" + sizeHash))
}
