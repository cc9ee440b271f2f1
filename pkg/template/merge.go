// merge.go - Merge caller overrides onto a stored template record.
package template

// Overrides holds caller-supplied values that replace template fields.
// Nil pointers and empty strings leave the template value untouched.
type Overrides struct {
	Mode             string
	BackgroundStyle  string
	TextStyle        string
	TextColor        string
	CustomBackground string
	FontSize         *int
	LineHeight       *float64
	MaskOpacity      *float64
	LineCount        *int
}

// Merge returns a copy of base with the overrides applied. base is not modified.
func Merge(base ImageTemplate, over Overrides) ImageTemplate {
	merged := base

	if over.Mode != "" {
		merged.TemplateType = over.Mode
	}
	if over.BackgroundStyle != "" {
		merged.BackgroundStyle = over.BackgroundStyle
	}
	if over.TextStyle != "" {
		merged.TextStyle = over.TextStyle
	}
	if over.TextColor != "" {
		merged.TextColor = over.TextColor
	}
	if over.CustomBackground != "" {
		merged.CustomBackgroundPath = over.CustomBackground
	}
	if over.FontSize != nil {
		merged.FontSize = *over.FontSize
	}
	if over.LineHeight != nil {
		merged.LineHeight = FlexFloat(*over.LineHeight)
	}
	if over.MaskOpacity != nil {
		merged.MaskOpacity = FlexFloat(*over.MaskOpacity)
	}
	if over.LineCount != nil {
		merged.TextLines = *over.LineCount
	}

	return merged
}

// Empty reports whether no override is set.
func (o Overrides) Empty() bool {
	return o == Overrides{}
}
