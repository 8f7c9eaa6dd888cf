package storage

import (
	"math"
	"path"
	"sort"
	"strings"
)

// Category of a stored object, decided by file extension.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryBrochure Category = "brochure"
	CategoryOther    Category = "other"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".bmp": true, ".svg": true, ".avif": true, ".heic": true,
}

var brochureExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".odt": true, ".rtf": true, ".txt": true,
}

// Classify maps an object name to its category, ignoring extension case.
func Classify(name string) Category {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case imageExtensions[ext]:
		return CategoryImage
	case brochureExtensions[ext]:
		return CategoryBrochure
	default:
		return CategoryOther
	}
}

// Extensions returns the accepted extensions for c, or nil for CategoryOther.
func Extensions(c Category) []string {
	var set map[string]bool
	switch c {
	case CategoryImage:
		set = imageExtensions
	case CategoryBrochure:
		set = brochureExtensions
	default:
		return nil
	}
	out := make([]string, 0, len(set))
	for ext := range set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// CategoryStats is the count and size of one category.
type CategoryStats struct {
	Count  int64   `json:"count"`
	SizeMB float64 `json:"size_mb"`
}

// Stats is an aggregate over a set of objects. Objects outside the image and
// brochure categories only count toward the totals.
type Stats struct {
	TotalFiles  int64         `json:"total_files"`
	TotalSizeMB float64       `json:"total_size_mb"`
	Images      CategoryStats `json:"images"`
	Brochures   CategoryStats `json:"brochures"`
}

// Summarize aggregates objects into Stats. Sizes are summed in bytes and
// converted to MB (1024*1024) rounded to two decimals.
func Summarize(objects []Object) Stats {
	var total, images, brochures int64
	var s Stats
	for _, o := range objects {
		s.TotalFiles++
		total += o.Size
		switch Classify(o.Name) {
		case CategoryImage:
			s.Images.Count++
			images += o.Size
		case CategoryBrochure:
			s.Brochures.Count++
			brochures += o.Size
		}
	}
	s.TotalSizeMB = toMB(total)
	s.Images.SizeMB = toMB(images)
	s.Brochures.SizeMB = toMB(brochures)
	return s
}

func toMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}
