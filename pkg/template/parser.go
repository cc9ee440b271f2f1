// parser.go - Example template generation for `covercard init`.
package template

// GetExampleTemplate returns a sample template record (JSON) and a matching
// text line file for covercard init.
func GetExampleTemplate() (templateJSON, linesText string) {
	templateJSON = `{
  "name": "Gold headline",
  "template_type": "insert",
  "text_style": "gold",
  "text_color": "#2c3e50",
  "background_style": "clean_solid",
  "font_size": 40,
  "line_height": "1.2",
  "mask_opacity": "0",
  "custom_background_path": "",
  "text_lines": 3
}`

	linesText = `2025年9月6日
北京国企
招聘信息差
`
	return
}

// GetExampleOverlayTemplate returns a sample overlay-mode template record.
func GetExampleOverlayTemplate() string {
	return `name: Overlay caption
template_type: overlay
text_style: handwritten_casual
text_color: "#ffffff"
background_style: minimal_gradient
font_size: 56
line_height: "1.4"
mask_opacity: "0.5"
text_lines: 2
`
}
