package etdx

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPhotoEscapes = errors.New("photo path escapes its page folder")
	ErrMissingEntry = errors.New("required container entry missing")
)

// Project is an opened .etdx container, extracted to a scratch directory.
// Close removes the scratch directory.
type Project struct {
	root    string
	cleanup bool

	Info     ProjectInfo
	PageIDs  []string
	Template MasterTemplate

	pages map[string]*PageInfo
}

// Open extracts the container at path and loads its descriptors.
func Open(path string) (*Project, error) {
	dir, err := os.MkdirTemp("", "etdxpdf-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	if err := extract(path, dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	p, err := OpenDir(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	p.cleanup = true
	return p, nil
}

// OpenDir loads an already-extracted container rooted at dir. Close is a
// no-op for projects opened this way.
func OpenDir(dir string) (*Project, error) {
	p := &Project{root: dir, pages: make(map[string]*PageInfo)}

	if err := readJSON(filepath.Join(dir, "projectInfo.json"), &p.Info); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "page.json"), &p.PageIDs); err != nil {
		return nil, err
	}
	// The master template is advisory; a container without one still renders.
	templatePath := filepath.Join(dir, "MasterTemplate", "_info.json")
	if _, err := os.Stat(templatePath); err == nil {
		if err := readJSON(templatePath, &p.Template); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Project) Close() error {
	if !p.cleanup {
		return nil
	}
	return os.RemoveAll(p.root)
}

// Root returns the extracted container directory.
func (p *Project) Root() string {
	return p.root
}

// Page loads a page's _info.json, caching the result.
func (p *Project) Page(id string) (*PageInfo, error) {
	if info, ok := p.pages[id]; ok {
		return info, nil
	}
	path := filepath.Join(p.root, id, "_info.json")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	info := &PageInfo{}
	if err := readJSON(path, info); err != nil {
		return nil, err
	}
	p.pages[id] = info
	return info, nil
}

// PhotoPath resolves a photo's imagepath, which is backslash-separated in
// the container, to an absolute path under the page's folder. Paths that
// resolve outside the page folder are rejected.
func (p *Project) PhotoPath(pageID string, photo Photo) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(photo.ImagePath, `\`, "/"))
	pageDir := filepath.Join(p.root, pageID)
	full := filepath.Join(pageDir, rel)

	if !strings.HasPrefix(full, pageDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", photo.ImagePath, ErrPhotoEscapes)
	}
	return full, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrMissingEntry)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// extract unpacks a zip archive into dir, refusing entries that would land
// outside it.
func extract(archivePath, dir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, dir+string(filepath.Separator)) {
			return fmt.Errorf("container entry %q escapes extraction dir", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
