package etdx

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Builder assembles a new .etdx container in a scratch directory and zips
// it on Finish. Pages are emitted in AddPage order.
type Builder struct {
	workDir string
	pageIDs []string
}

// NewBuilder creates an empty container workspace.
func NewBuilder() (*Builder, error) {
	dir, err := os.MkdirTemp("", "etdxpdf-build-*")
	if err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}
	return &Builder{workDir: dir}, nil
}

// newID generates the short uppercase identifiers the editor uses for page
// and image folders.
func newID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}

// AddPage writes one page folder: the image bytes under a fresh image
// folder and a _info.json placing photo on a paperSizeID canvas. The
// photo's ImagePath is filled in by the builder.
func (b *Builder) AddPage(paperSizeID string, canvas [2]int, imageName string, imageData []byte, photo Photo) error {
	pageID := newID()
	folderID := newID()

	imageDir := filepath.Join(b.workDir, pageID, folderID)
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return fmt.Errorf("create page dirs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(imageDir, imageName), imageData, 0o644); err != nil {
		return fmt.Errorf("write page image: %w", err)
	}

	photo.ImagePath = folderID + `\` + imageName
	if photo.WorkSpaceNumber == 0 {
		photo.WorkSpaceNumber = 1
	}
	if photo.ZIndex == 0 {
		photo.ZIndex = 1000
	}
	if photo.APFInfo == nil {
		photo.APFInfo = &APFInfo{Mode: "standard", Level: 5}
	}

	fontSize, maxWidth := 48.0, 297
	patternSize := "L"
	if t, ok := templateSizeByID(paperSizeID); ok {
		fontSize, maxWidth, patternSize = t.fontSize, t.maxWidth, t.patternSize
	}
	show := true
	info := PageInfo{
		Version:         3,
		ID:              "LA_FL",
		Thumbnail:       "LA_FL.png",
		Update:          true,
		Function:        "LA",
		MediaTypeIDList: []string{},
		EditedPaperSize: EditedPaperSize{
			PaperSizeID:            paperSizeID,
			Size:                   canvas,
			TopLeft:                [2]int{-36, -42},
			DefaultAddTextFontSize: fontSize,
			BackgroundData: BackgroundData{
				BackgroundPattern: BackgroundPattern{
					Type:         "C",
					Size:         patternSize,
					PatternColor: [4]int{255, 255, 255, 255},
					Layout:       "T",
					Scale:        1.0,
					Density:      50,
				},
			},
			VergeData: VergeData{
				BorderType:   "BL",
				DefaultWidth: 42,
				MaxWidth:     maxWidth,
				Width:        42,
			},
			ImageFrames: emptyList(),
			Photos:      []Photo{photo},
			Cliparts:    emptyList(),
			Messages:    emptyList(),
			Sender:      Sender{Show: &show, ZIndex: 1001},
			WorkData:    &WorkData{MaxWorkSpaceCount: 1},
		},
		PaperSizeList: pagePaperSizeList(),
	}

	if err := writeJSON(filepath.Join(b.workDir, pageID, "_info.json"), info, false); err != nil {
		return err
	}
	b.pageIDs = append(b.pageIDs, pageID)
	return nil
}

// Finish writes the top-level descriptors and zips the workspace into
// outputPath. The workspace is removed afterwards.
func (b *Builder) Finish(outputPath string) error {
	defer b.Close()

	info := ProjectInfo{
		AppVersion: "4.0.2.0",
		EditInfo: EditInfo{
			PageEditInfo: PageEditInfo{
				CanAddPage:    true,
				CanCopyPage:   true,
				CanRemovePage: true,
			},
		},
	}
	if err := writeJSON(filepath.Join(b.workDir, "projectInfo.json"), info, true); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(b.workDir, "page.json"), b.pageIDs, false); err != nil {
		return err
	}
	templateDir := filepath.Join(b.workDir, "MasterTemplate")
	if err := os.MkdirAll(templateDir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if err := writeJSON(filepath.Join(templateDir, "_info.json"), NewMasterTemplate(), true); err != nil {
		return err
	}

	return b.archive(outputPath)
}

// Close removes the build workspace. Finish already calls it; calling it
// again is harmless.
func (b *Builder) Close() error {
	return os.RemoveAll(b.workDir)
}

func (b *Builder) archive(outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	zw := zip.NewWriter(out)

	err = filepath.Walk(b.workDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		rel, err := filepath.Rel(b.workDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("archive container: %w", err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("finalize container: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}
	return nil
}

func writeJSON(path string, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
