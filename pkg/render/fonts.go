// fonts.go - Font management by style category with embedded fallback fonts.
// Each text style asks for a role (script, serif bold, CJK black...). A role is
// served by a configured TTF/OTF/TTC file when one loads, otherwise by an
// embedded Go font of the closest weight. Fallback fonts are consulted per rune
// when the role font has no glyph, which is how CJK text gets covered.
package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// Role is a font category requested by a text style. Exact family names are
// not part of the contract, only the category and weight.
type Role int

const (
	RoleSans           Role = iota // plain text and captions
	RoleSerifBold                  // gold styles
	RoleScript                     // script 400
	RoleScriptMedium               // script 500
	RoleScriptItalic               // italic script 500
	RoleScriptSemibold             // script 600
	RoleCJKBlack                   // CJK-capable 900
)

var roleNames = map[Role]string{
	RoleSans:           "sans_regular",
	RoleSerifBold:      "serif_bold",
	RoleScript:         "script_regular",
	RoleScriptMedium:   "script_medium",
	RoleScriptItalic:   "script_italic",
	RoleScriptSemibold: "script_semibold",
	RoleCJKBlack:       "cjk_black",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole returns the role with the given name ("script_regular", "cjk_black"...).
func ParseRole(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

var embeddedFonts = map[Role][]byte{
	RoleSans:           goregular.TTF,
	RoleSerifBold:      gobold.TTF,
	RoleScript:         goitalic.TTF,
	RoleScriptMedium:   gomediumitalic.TTF,
	RoleScriptItalic:   gomediumitalic.TTF,
	RoleScriptSemibold: gobolditalic.TTF,
	RoleCJKBlack:       gobold.TTF,
}

// FontPaths lists optional font files per role. Empty entries use the
// embedded font for that role.
type FontPaths struct {
	SansRegular    string
	SerifBold      string
	ScriptRegular  string
	ScriptMedium   string
	ScriptItalic   string
	ScriptSemibold string
	CJKBlack       string
	Fallbacks      []string
}

func (p FontPaths) byRole() map[Role]string {
	return map[Role]string{
		RoleSans:           p.SansRegular,
		RoleSerifBold:      p.SerifBold,
		RoleScript:         p.ScriptRegular,
		RoleScriptMedium:   p.ScriptMedium,
		RoleScriptItalic:   p.ScriptItalic,
		RoleScriptSemibold: p.ScriptSemibold,
		RoleCJKBlack:       p.CJKBlack,
	}
}

// FontManager resolves roles to parsed fonts. It is read-only after
// construction and safe for concurrent use.
type FontManager struct {
	roles     map[Role]*sfnt.Font
	fallbacks []*sfnt.Font
	last      *sfnt.Font
}

// NewFontManager loads the configured fonts. A font file that cannot be read
// or parsed is logged and replaced by the embedded font for its role.
func NewFontManager(paths FontPaths) (*FontManager, error) {
	fm := &FontManager{roles: make(map[Role]*sfnt.Font, len(embeddedFonts))}

	for role, path := range paths.byRole() {
		if path != "" {
			f, err := loadFontFile(path)
			if err == nil {
				fm.roles[role] = f
				continue
			}
			Logger().Warn("could not load font, using embedded default",
				"role", role.String(), "path", path, "err", err)
		}
		f, err := parseFont(embeddedFonts[role])
		if err != nil {
			return nil, fmt.Errorf("parse embedded %s font: %w", role, err)
		}
		fm.roles[role] = f
	}

	for _, path := range paths.Fallbacks {
		f, err := loadFontFile(path)
		if err != nil {
			Logger().Warn("skipping fallback font", "path", path, "err", err)
			continue
		}
		fm.fallbacks = append(fm.fallbacks, f)
	}

	last, err := parseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	fm.last = last

	return fm, nil
}

// NewFontManagerFromBytes builds a manager from in-memory font data, for
// callers without a filesystem (the browser client). Roles missing from
// fonts use embedded defaults.
func NewFontManagerFromBytes(fonts map[Role][]byte, fallbacks ...[]byte) (*FontManager, error) {
	fm, err := NewFontManager(FontPaths{})
	if err != nil {
		return nil, err
	}
	for role, data := range fonts {
		f, err := parseFont(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s font: %w", role, err)
		}
		fm.roles[role] = f
	}
	for i, data := range fallbacks {
		f, err := parseFont(data)
		if err != nil {
			return nil, fmt.Errorf("parse fallback font %d: %w", i, err)
		}
		fm.fallbacks = append(fm.fallbacks, f)
	}
	return fm, nil
}

// chain returns the fonts tried, in order, for a rune drawn in role.
func (fm *FontManager) chain(role Role) []*sfnt.Font {
	primary, ok := fm.roles[role]
	if !ok {
		primary = fm.roles[RoleSans]
	}
	out := make([]*sfnt.Font, 0, len(fm.fallbacks)+2)
	out = append(out, primary)
	out = append(out, fm.fallbacks...)
	if fm.last != nil {
		out = append(out, fm.last)
	}
	return out
}

func loadFontFile(path string) (*sfnt.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFont(data)
}

// parseFont accepts single fonts and collections (.ttc/.otc, first face).
func parseFont(data []byte) (*sfnt.Font, error) {
	f, err := sfnt.Parse(data)
	if err == nil {
		return f, nil
	}
	coll, cerr := sfnt.ParseCollection(data)
	if cerr != nil {
		return nil, err
	}
	return coll.Font(0)
}

// systemCJKFonts are common install locations of CJK-capable fonts on Linux,
// macOS and Windows.
var systemCJKFonts = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Black.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Black.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Black.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/adobe-source-han-sans/SourceHanSansCN-Heavy.otf",
	"/usr/share/fonts/adobe-source-han-sans/SourceHanSans-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/wqy-zenhei/wqy-zenhei.ttc",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/STHeiti Medium.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\msyh.ttc`,
	`C:\Windows\Fonts\simhei.ttf`,
}

// SystemCJKFonts returns the installed CJK font files found in well-known
// locations, best match first. The embedded fonts carry no CJK glyphs, so
// callers pass these as FontPaths.Fallbacks when none are configured.
func SystemCJKFonts() []string {
	return existingFiles(systemCJKFonts)
}

func existingFiles(candidates []string) []string {
	var found []string
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			found = append(found, p)
		}
	}
	return found
}
