package template

import "testing"

func TestMerge(t *testing.T) {
	base := ImageTemplate{
		Name:            "base",
		TemplateType:    "insert",
		TextStyle:       "gold",
		TextColor:       "#2c3e50",
		BackgroundStyle: "clean_solid",
		FontSize:        40,
		LineHeight:      1.2,
		TextLines:       3,
	}

	size := 60
	mask := 0.0
	merged := Merge(base, Overrides{
		Mode:        "overlay",
		TextStyle:   "artistic",
		FontSize:    &size,
		MaskOpacity: &mask,
	})

	if merged.TemplateType != "overlay" || merged.TextStyle != "artistic" || merged.FontSize != 60 {
		t.Errorf("overrides not applied: %+v", merged)
	}
	if merged.BackgroundStyle != "clean_solid" || merged.LineHeight != 1.2 || merged.TextLines != 3 {
		t.Errorf("untouched fields changed: %+v", merged)
	}
	if base.TemplateType != "insert" || base.FontSize != 40 {
		t.Error("base was modified")
	}
}

func TestMergeZeroPointerOverrides(t *testing.T) {
	base := ImageTemplate{FontSize: 40, TextLines: 3, MaskOpacity: 0.5}
	zero := 0
	zf := 0.0
	merged := Merge(base, Overrides{LineCount: &zero, MaskOpacity: &zf})
	if merged.TextLines != 0 {
		t.Errorf("TextLines = %d, want explicit 0", merged.TextLines)
	}
	if merged.MaskOpacity != 0 {
		t.Errorf("MaskOpacity = %v, want explicit 0", merged.MaskOpacity)
	}
	if merged.FontSize != 40 {
		t.Errorf("FontSize = %d, want 40", merged.FontSize)
	}
}

func TestOverridesEmpty(t *testing.T) {
	if !(Overrides{}).Empty() {
		t.Error("zero Overrides should be empty")
	}
	if (Overrides{TextColor: "#000"}).Empty() {
		t.Error("Overrides with a color should not be empty")
	}
}
