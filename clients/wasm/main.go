//go:build js && wasm

// CoverCard WASM - client-side card renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o covercard.wasm ./clients/wasm/
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/xob0t/CoverCard/pkg/acquire"
	"github.com/xob0t/CoverCard/pkg/generator"
	"github.com/xob0t/CoverCard/pkg/render"
	"github.com/xob0t/CoverCard/pkg/template"
)

// In-memory asset store (replaces the server-side asset manager).
var (
	assetsMu sync.RWMutex
	assets   = make(map[string][]byte)
)

var (
	compositorMu sync.RWMutex
	compositor   *render.Compositor

	// Fonts supplied by the page, keyed by role. Fallbacks are tried per rune.
	fontsMu       sync.Mutex
	roleFonts     = make(map[render.Role][]byte)
	fallbackFonts [][]byte
)

func main() {
	c, err := render.New()
	if err != nil {
		fmt.Println("CoverCard WASM: init failed:", err)
		return
	}
	compositor = c
	fmt.Println("CoverCard WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goRenderCard", js.FuncOf(renderCard))
	js.Global().Set("goRegisterAsset", js.FuncOf(registerAsset))
	js.Global().Set("goRemoveAsset", js.FuncOf(removeAsset))
	js.Global().Set("goStyles", js.FuncOf(styles))
	js.Global().Set("goRegisterFont", js.FuncOf(registerFont))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// resolveAsset returns the bytes of a registered asset, or nil.
func resolveAsset(id string) []byte {
	assetsMu.RLock()
	defer assetsMu.RUnlock()
	return assets[id]
}

// goRegisterAsset(id, base64Data, mime) stores an image in Go memory.
func registerAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need id, base64Data, mime")
	}
	id := args[0].String()
	b64 := args[1].String()
	mimeType := args[2].String()
	if !acquire.IsImageMIME(mimeType) {
		return js.ValueOf("error: not an image type: " + mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}

	assetsMu.Lock()
	assets[id] = data
	assetsMu.Unlock()

	return js.ValueOf("ok")
}

// goRemoveAsset(id) removes an asset from Go memory.
func removeAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need id")
	}
	id := args[0].String()
	assetsMu.Lock()
	delete(assets, id)
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRegisterFont(role, base64Data) installs a font for a role ("script_regular",
// "cjk_black"...) or, with role "fallback", adds a per-rune fallback font.
// The compositor is rebuilt so later renders use it.
func registerFont(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: need role, base64Data")
	}
	name := args[0].String()
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}

	fontsMu.Lock()
	defer fontsMu.Unlock()

	roles := make(map[render.Role][]byte, len(roleFonts)+1)
	for r, d := range roleFonts {
		roles[r] = d
	}
	fallbacks := fallbackFonts
	if name == "fallback" {
		fallbacks = append(fallbacks[:len(fallbacks):len(fallbacks)], data)
	} else {
		role, ok := render.ParseRole(name)
		if !ok {
			return js.ValueOf("error: unknown font role " + name)
		}
		roles[role] = data
	}

	fm, err := render.NewFontManagerFromBytes(roles, fallbacks...)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	c, err := render.New(render.WithFonts(fm))
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	roleFonts, fallbackFonts = roles, fallbacks
	compositorMu.Lock()
	compositor = c
	compositorMu.Unlock()
	return js.ValueOf("ok")
}

// goStyles() returns the style catalog as JSON.
func styles(this js.Value, args []js.Value) interface{} {
	b, err := json.Marshal(render.Styles())
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(string(b))
}

// goRenderCard(templateJSON, linesJSON) renders and returns a base64 PNG.
func renderCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: need templateJSON, linesJSON")
	}

	t, err := template.ParseTemplate([]byte(args[0].String()), ".json")
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	var lines template.TextLines
	if err := json.Unmarshal([]byte(args[1].String()), &lines); err != nil {
		return js.ValueOf("error: parse lines: " + err.Error())
	}

	cfg, err := t.StyleConfig()
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	// Only registered assets and inline data URLs are usable here; anything
	// else falls back to the preset or placeholder.
	if src := t.BackgroundSource(); src != "" {
		data := resolveAsset(src)
		if data == nil {
			if d, _, err := acquire.ParseDataURL(src); err == nil {
				data = d
			}
		}
		if data != nil {
			if res, err := acquire.Decode(data); err == nil {
				cfg.CustomBackground = res.Image
			} else {
				fmt.Println("CoverCard WASM: background ignored:", err)
			}
		}
	}

	compositorMu.RLock()
	c := compositor
	compositorMu.RUnlock()

	img, err := c.RenderImage(cfg, lines)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	var buf bytes.Buffer
	if err := generator.Encode(&buf, ".png", img); err != nil {
		return js.ValueOf("error: encode: " + err.Error())
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}
