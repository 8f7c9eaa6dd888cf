package storage

import (
	"reflect"
	"sort"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"properties/1/image/a.jpg", CategoryImage},
		{"COVER.JPEG", CategoryImage},
		{"plan.webp", CategoryImage},
		{"brochure.PDF", CategoryBrochure},
		{"terms.docx", CategoryBrochure},
		{"archive.zip", CategoryOther},
		{"no-extension", CategoryOther},
		{"dir.jpg/file", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	const mb = 1024 * 1024
	objects := []Object{
		{Name: "a.jpg", Size: 300*mb + mb/2},
		{Name: "b.pdf", Size: 40 * mb},
		{Name: "c.zip", Size: 1 * mb},
	}
	got := Summarize(objects)
	want := Stats{
		TotalFiles:  3,
		TotalSizeMB: 341.5,
		Images:      CategoryStats{Count: 1, SizeMB: 300.5},
		Brochures:   CategoryStats{Count: 1, SizeMB: 40},
	}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

func TestSummarizeRoundsOnTotals(t *testing.T) {
	// Three files of 1/3 MB each: rounding the sum gives 1.00, rounding each gives 0.99.
	third := int64(1024 * 1024 / 3)
	objects := []Object{{Name: "a.png", Size: third}, {Name: "b.png", Size: third}, {Name: "c.png", Size: third + 1}}
	if got := Summarize(objects).Images.SizeMB; got != 1 {
		t.Errorf("images size = %v, want 1", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != (Stats{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", got)
	}
}

func TestExtensions(t *testing.T) {
	if Extensions(CategoryOther) != nil {
		t.Error("other category should have no extensions")
	}
	for _, ext := range Extensions(CategoryImage) {
		if Classify("x"+ext) != CategoryImage {
			t.Errorf("%s listed as image but classified otherwise", ext)
		}
	}
	for _, ext := range Extensions(CategoryBrochure) {
		if Classify("x"+ext) != CategoryBrochure {
			t.Errorf("%s listed as brochure but classified otherwise", ext)
		}
	}
}

func TestExtensionsStableOrder(t *testing.T) {
	for _, c := range []Category{CategoryImage, CategoryBrochure} {
		first := Extensions(c)
		if !sort.StringsAreSorted(first) {
			t.Errorf("%s extensions not sorted: %v", c, first)
		}
		for i := 0; i < 20; i++ {
			if got := Extensions(c); !reflect.DeepEqual(got, first) {
				t.Fatalf("%s extensions changed between calls: %v then %v", c, first, got)
			}
		}
	}
}
