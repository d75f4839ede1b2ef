// Package etdx reads and writes the .etdx photobook container, a zip
// archive of JSON layout descriptors plus per-page raster assets.
package etdx

import "encoding/json"

// ProjectInfo mirrors projectInfo.json.
type ProjectInfo struct {
	AppVersion string     `json:"appVersion"`
	EditInfo   EditInfo   `json:"editInfo"`
	FormatInfo FormatInfo `json:"formatInfo"`
}

type EditInfo struct {
	PageEditInfo PageEditInfo `json:"pageEditInfo"`
}

type PageEditInfo struct {
	CanAddPage    bool `json:"canAddPage"`
	CanCopyPage   bool `json:"canCopyPage"`
	CanRemovePage bool `json:"canRemovePage"`
}

type FormatInfo struct {
	SaveFormat int `json:"saveFormat"`
}

// PageInfo mirrors a page folder's _info.json.
type PageInfo struct {
	Version         int              `json:"version"`
	ID              string           `json:"id"`
	Thumbnail       string           `json:"thumbnail"`
	Update          bool             `json:"update"`
	Function        string           `json:"function"`
	MediaTypeIDList []string         `json:"mediaTypeIdList"`
	EditedPaperSize EditedPaperSize  `json:"editedPaperSize"`
	PaperSizeList   []PaperSizeEntry `json:"paperSizeList,omitempty"`
}

// EditedPaperSize carries the page's active paper size and photo layout.
type EditedPaperSize struct {
	PaperSizeID            string            `json:"paperSizeId"`
	Size                   [2]int            `json:"size"`
	TopLeft                [2]int            `json:"topleft"`
	DefaultAddTextFontSize float64           `json:"defaultAddTextFontSize"`
	BackgroundData         BackgroundData    `json:"backgroundData"`
	VergeData              VergeData         `json:"vergeData"`
	ImageFrames            []json.RawMessage `json:"imageFrames"`
	Photos                 []Photo           `json:"photos"`
	Cliparts               []json.RawMessage `json:"cliparts"`
	Messages               []json.RawMessage `json:"messages"`
	Sender                 Sender            `json:"sender"`
	WorkData               *WorkData         `json:"workData,omitempty"`
}

// Photo is one placed photo. ImagePath is relative to the page folder and
// backslash-separated regardless of platform; Center is the offset from the
// canvas center in layout units with Y increasing upward.
type Photo struct {
	ImagePath       string     `json:"imagepath"`
	OriginalSize    [2]int     `json:"originalsize"`
	Center          [2]float64 `json:"center"`
	Scale           float64    `json:"scale"`
	Crop            Crop       `json:"crop"`
	APFInfo         *APFInfo   `json:"apfInfo,omitempty"`
	WorkSpaceNumber int        `json:"workSpaceNumber,omitempty"`
	ZIndex          int        `json:"zindex,omitempty"`
}

type Crop struct {
	Type int    `json:"type"`
	Rect [4]int `json:"rect"`
}

type APFInfo struct {
	Mode  string `json:"mode"`
	Level int    `json:"level"`
}

// MasterTemplate mirrors MasterTemplate/_info.json, which carries the full
// paper-size catalog superset for editor compatibility.
type MasterTemplate struct {
	ID              string           `json:"id"`
	Version         int              `json:"version"`
	Thumbnail       string           `json:"thumbnail"`
	Update          bool             `json:"update"`
	Function        string           `json:"function"`
	MediaTypeIDList []string         `json:"mediaTypeIdList"`
	BorderType      int              `json:"borderType"`
	PaperSizeList   []PaperSizeEntry `json:"paperSizeList"`
}

// PaperSizeEntry is one paper size in a paperSizeList. The master template
// variant carries orientation and isEquablePhotoSize; per-page lists omit
// them.
type PaperSizeEntry struct {
	PaperSizeID            string            `json:"paperSizeId"`
	Size                   [2]int            `json:"size"`
	Orientation            *int              `json:"orientation,omitempty"`
	TopLeft                [2]int            `json:"topleft"`
	DefaultAddTextFontSize float64           `json:"defaultAddTextFontSize"`
	BackgroundData         BackgroundData    `json:"backgroundData"`
	VergeData              VergeData         `json:"vergeData"`
	ImageFrames            []json.RawMessage `json:"imageFrames"`
	Cliparts               []json.RawMessage `json:"cliparts"`
	Messages               []json.RawMessage `json:"messages"`
	Sender                 Sender            `json:"sender"`
	WorkData               *WorkData         `json:"workData,omitempty"`
}

type BackgroundData struct {
	BackgroundImage   string            `json:"backgroundImage"`
	BackgroundPattern BackgroundPattern `json:"backgroundPattern"`
}

type BackgroundPattern struct {
	Type         string   `json:"type"`
	Size         string   `json:"size"`
	PatternColor [4]int   `json:"patternColor"`
	PatternName  string   `json:"patternName"`
	Layout       string   `json:"layout"`
	Angle        *float64 `json:"angle,omitempty"`
	Scale        float64  `json:"scale"`
	Density      int      `json:"density"`
}

type VergeData struct {
	BorderType         string `json:"borderType"`
	IsEquablePhotoSize *bool  `json:"isEquablePhotoSize,omitempty"`
	DefaultWidth       int    `json:"defaultWidth"`
	MaxWidth           int    `json:"maxWidth"`
	Width              int    `json:"width"`
}

type Sender struct {
	Show   *bool `json:"show,omitempty"`
	ZIndex int   `json:"zindex,omitempty"`
}

type WorkData struct {
	MaxWorkSpaceCount int `json:"maxWorkSpaceCount"`
}
