// validator.go - Fatal configuration checks and non-fatal warnings.
package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConfiguration is the umbrella for configuration errors. A render that
// fails with it must not be retried until the caller fixes its input.
var ErrConfiguration = errors.New("configuration error")

// ConfigError describes one invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Catalog reports which style ids are registered.
type Catalog interface {
	HasBackground(id string) bool
	HasTextStyle(id string) bool
}

// Validate returns the first fatal problem with cfg, or nil. Values that are
// merely out of the usual range (mask opacity) are not fatal and not clamped.
func Validate(cfg StyleConfig) error {
	if !cfg.Mode.Valid() {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if cfg.FontSize <= 0 {
		return &ConfigError{Field: "font_size", Reason: "missing or not positive"}
	}
	if cfg.LineHeight <= 0 {
		return &ConfigError{Field: "line_height", Reason: "missing or not positive"}
	}
	if cfg.LineCount < MinLines || cfg.LineCount > MaxLines {
		return &ConfigError{
			Field:  "text_lines",
			Reason: fmt.Sprintf("%d is outside %d..%d", cfg.LineCount, MinLines, MaxLines),
		}
	}
	return nil
}

// Warnings lists non-fatal issues for graceful degradation. Catalog may be
// nil, in which case style ids are not checked.
func Warnings(cfg StyleConfig, lines TextLines, cat Catalog) []string {
	var warnings []string

	if cat != nil {
		if !cat.HasBackground(cfg.BackgroundStyle) {
			warnings = append(warnings, fmt.Sprintf("unknown background style %q; default gradient used", cfg.BackgroundStyle))
		}
		if cfg.TextStyle != "" && !cat.HasTextStyle(cfg.TextStyle) {
			fallback := "plain text"
			if strings.HasPrefix(cfg.TextStyle, "handwritten_") {
				fallback = "handwritten_casual"
			}
			warnings = append(warnings, fmt.Sprintf("unknown text style %q; %s used", cfg.TextStyle, fallback))
		}
	}

	if cfg.MaskOpacity < 0 || cfg.MaskOpacity > 1 {
		warnings = append(warnings, fmt.Sprintf("mask opacity %g is outside [0,1] and is used as given", cfg.MaskOpacity))
	}
	if cfg.Mode == ModeInsert && cfg.MaskOpacity > 0 {
		warnings = append(warnings, "mask opacity only applies in overlay mode; ignored")
	}
	if cfg.LineCount > 0 && len(lines) > cfg.LineCount {
		warnings = append(warnings, fmt.Sprintf("%d lines given but template lays out %d; extra lines ignored", len(lines), cfg.LineCount))
	}

	return warnings
}

// StyleList is a catalog listing for display.
type StyleList struct {
	Backgrounds []string `json:"backgrounds"`
	TextStyles  []string `json:"text_styles"`
}

// FormatCatalog returns a human-readable listing of the registered styles.
func FormatCatalog(list StyleList) string {
	bg := append([]string(nil), list.Backgrounds...)
	ts := append([]string(nil), list.TextStyles...)
	sort.Strings(bg)
	sort.Strings(ts)

	var b strings.Builder
	b.WriteString("Background styles:\n")
	for _, id := range bg {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	b.WriteString("  (any other id draws the default gradient)\n")
	b.WriteString("\nText styles:\n")
	for _, id := range ts {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	b.WriteString("  (unknown handwritten_* ids draw handwritten_casual, others plain text)\n")
	return b.String()
}
