// Package template provides the style configuration consumed by the card
// compositor, the stored image-template record it is usually built from,
// and the loading, merging and validation around them.
package template

import (
	"encoding/json"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ── Render inputs ──

// Mode selects who owns the background of the final image.
type Mode string

const (
	// ModeInsert produces a standalone image; the background is fully drawn here.
	ModeInsert Mode = "insert"
	// ModeOverlay produces text meant to be layered onto an external photo later.
	ModeOverlay Mode = "overlay"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeInsert || m == ModeOverlay
}

// ParseMode converts a user-supplied mode string. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q: use insert or overlay", s)
	}
	return m, nil
}

// Canvas dimensions. They never change for the lifetime of a compositor.
const (
	CanvasWidth  = 750
	CanvasHeight = 1000
)

// Line count bounds.
const (
	MinLines = 1
	MaxLines = 4
)

// StyleConfig is the immutable per-render style description.
type StyleConfig struct {
	Mode             Mode
	BackgroundStyle  string      // background catalog id; unknown ids draw the default gradient
	CustomBackground image.Image // nil = absent; takes precedence over BackgroundStyle
	TextStyle        string      // text catalog id; unknown ids draw plain text
	TextColor        string      // CSS color, used by non-gold, non-gradient styles
	FontSize         int         // pixels; required, no implicit default
	LineHeight       float64     // multiplier of FontSize
	MaskOpacity      float64     // overlay mode only
	LineCount        int         // 1..4
}

// TextLines holds up to four lines, top to bottom.
type TextLines []string

// Slot returns the text for layout slot i, or "" when the slot has no line.
func (l TextLines) Slot(i int) string {
	if i < 0 || i >= len(l) {
		return ""
	}
	return l[i]
}

// Blank reports whether a line draws nothing.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ── Stored template record ──

// SessionBackground marks a background that only exists in the caller's
// session (an upload that was never persisted). It is never a loadable source.
const SessionBackground = "custom_uploaded_background"

// ImageTemplate is the record shape kept by the template persistence service.
type ImageTemplate struct {
	ID                   int       `json:"id,omitempty" yaml:"id,omitempty"`
	Name                 string    `json:"name" yaml:"name"`
	TemplateType         string    `json:"template_type" yaml:"template_type"`
	TextStyle            string    `json:"text_style" yaml:"text_style"`
	TextColor            string    `json:"text_color" yaml:"text_color"`
	BackgroundStyle      string    `json:"background_style" yaml:"background_style"`
	FontSize             int       `json:"font_size" yaml:"font_size"`
	LineHeight           FlexFloat `json:"line_height" yaml:"line_height"`
	MaskOpacity          FlexFloat `json:"mask_opacity" yaml:"mask_opacity"`
	CustomBackgroundPath string    `json:"custom_background_path,omitempty" yaml:"custom_background_path,omitempty"`
	TextLines            int       `json:"text_lines" yaml:"text_lines"`
	CreatedAt            time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// BackgroundSource returns the loadable custom background reference, or ""
// when the record has none or only refers to a session upload.
func (t *ImageTemplate) BackgroundSource() string {
	p := strings.TrimSpace(t.CustomBackgroundPath)
	if p == SessionBackground {
		return ""
	}
	return p
}

// StyleConfig converts the record into render input. No defaults are filled
// in: a record without a font size produces a config that fails Validate.
// The custom background is left nil; acquiring it is the caller's job.
func (t *ImageTemplate) StyleConfig() (StyleConfig, error) {
	mode, err := ParseMode(t.TemplateType)
	if err != nil {
		return StyleConfig{}, fmt.Errorf("template %q: %w", t.Name, err)
	}
	return StyleConfig{
		Mode:            mode,
		BackgroundStyle: t.BackgroundStyle,
		TextStyle:       t.TextStyle,
		TextColor:       t.TextColor,
		FontSize:        t.FontSize,
		LineHeight:      float64(t.LineHeight),
		MaskOpacity:     float64(t.MaskOpacity),
		LineCount:       t.TextLines,
	}, nil
}

// ── FlexFloat ──

// FlexFloat is a float that also accepts a numeric string, which is how the
// persistence service stores line height and mask opacity.
type FlexFloat float64

// UnmarshalJSON accepts 1.2, "1.2", "" and null.
func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		return f.parse(str)
	}
	return f.parse(s)
}

// MarshalJSON writes a plain number.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// UnmarshalYAML accepts scalar numbers and quoted numeric strings.
func (f *FlexFloat) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number, got %s", node.Line, kindName(node.Kind))
	}
	return f.parse(node.Value)
}

// MarshalYAML writes a plain number.
func (f FlexFloat) MarshalYAML() (interface{}, error) {
	return float64(f), nil
}

func (f *FlexFloat) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
