package etdx

import "encoding/json"

// templateSize is one row of the editor paper-size superset. The editor
// expects the full list in every generated container even though only the
// seven printable sizes are selectable here.
type templateSize struct {
	paperSizeID string
	size        [2]int
	fontSize    float64
	patternSize string
	maxWidth    int
}

var templateSizes = []templateSize{
	{"LB", [2]int{1332, 1912}, 20.0, "S", 126},
	{"2L", [2]int{1872, 2634}, 29.0, "L", 180},
	{"HG", [2]int{1489, 2210}, 24.0, "S", 141},
	{"KG", [2]int{1512, 2272}, 25.0, "S", 144},
	{"S2", [2]int{1872, 1912}, 48.0, "L", 180},
	{"A5", [2]int{2170, 3088}, 48.0, "L", 209},
	{"A4", [2]int{3048, 4321}, 48.0, "L", 297},
	{"A3", [2]int{4281, 6065}, 68.0, "L", 420},
	{"6G", [2]int{2952, 3712}, 48.0, "L", 288},
	{"S1", [2]int{3048, 3088}, 48.0, "L", 297},
	{"A2", [2]int{6025, 8531}, 48.0, "L", 595},
	{"HV", [2]int{1512, 2672}, 48.0, "S", 144},
	{"5A", [2]int{2170, 3088}, 48.0, "L", 209},
	{"CA", [2]int{837, 1331}, 15.0, "S", 76},
	{"MS", [2]int{852, 1402}, 15.0, "S", 78},
	{"3A", [2]int{4735, 6958}, 68.0, "L", 466},
	{"4G", [2]int{3672, 4432}, 48.0, "L", 360},
	{"LT", [2]int{3132, 4072}, 45.0, "L", 306},
	{"LG", [2]int{3132, 5152}, 48.0, "L", 306},
}

func templateSizeByID(paperSizeID string) (templateSize, bool) {
	for _, t := range templateSizes {
		if t.paperSizeID == paperSizeID {
			return t, true
		}
	}
	return templateSize{}, false
}

func emptyList() []json.RawMessage {
	return []json.RawMessage{}
}

func (t templateSize) backgroundData(forMaster bool) BackgroundData {
	pattern := BackgroundPattern{
		Type:         "C",
		Size:         t.patternSize,
		PatternColor: [4]int{255, 255, 255, 255},
		Layout:       "T",
		Scale:        1.0,
		Density:      50,
	}
	if forMaster {
		angle := 0.0
		pattern.Angle = &angle
	}
	return BackgroundData{BackgroundPattern: pattern}
}

func (t templateSize) vergeData(forMaster bool) VergeData {
	v := VergeData{
		BorderType:   "BL",
		DefaultWidth: 42,
		MaxWidth:     t.maxWidth,
		Width:        42,
	}
	if forMaster {
		equable := true
		v.IsEquablePhotoSize = &equable
	}
	return v
}

// masterPaperSizeList builds the paperSizeList for MasterTemplate/_info.json.
func masterPaperSizeList() []PaperSizeEntry {
	entries := make([]PaperSizeEntry, 0, len(templateSizes))
	for _, t := range templateSizes {
		orientation := 0
		entries = append(entries, PaperSizeEntry{
			PaperSizeID:            t.paperSizeID,
			Size:                   t.size,
			Orientation:            &orientation,
			TopLeft:                [2]int{-36, -42},
			DefaultAddTextFontSize: t.fontSize,
			BackgroundData:         t.backgroundData(true),
			VergeData:              t.vergeData(true),
			ImageFrames:            emptyList(),
			Cliparts:               emptyList(),
			Messages:               emptyList(),
		})
	}
	return entries
}

// pagePaperSizeList builds the per-page paperSizeList variant, which drops
// orientation and carries workData.
func pagePaperSizeList() []PaperSizeEntry {
	entries := make([]PaperSizeEntry, 0, len(templateSizes))
	for _, t := range templateSizes {
		show := true
		entries = append(entries, PaperSizeEntry{
			PaperSizeID:            t.paperSizeID,
			Size:                   t.size,
			TopLeft:                [2]int{-36, -42},
			DefaultAddTextFontSize: t.fontSize,
			BackgroundData:         t.backgroundData(false),
			VergeData:              t.vergeData(false),
			ImageFrames:            emptyList(),
			Cliparts:               emptyList(),
			Messages:               emptyList(),
			Sender:                 Sender{Show: &show},
			WorkData:               &WorkData{MaxWorkSpaceCount: 1},
		})
	}
	return entries
}

// NewMasterTemplate builds the MasterTemplate descriptor for a generated
// container.
func NewMasterTemplate() MasterTemplate {
	return MasterTemplate{
		ID:              "LA_FL",
		Version:         3,
		Thumbnail:       "LA_FL.png",
		Update:          true,
		Function:        "LA",
		MediaTypeIDList: []string{},
		PaperSizeList:   masterPaperSizeList(),
	}
}
