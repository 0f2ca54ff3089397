package board

// Style holds the current tool defaults applied to newly drafted objects.
type Style struct {
	StrokeColor string  `json:"strokeColor" yaml:"stroke_color"`
	StrokeWidth float64 `json:"strokeWidth" yaml:"stroke_width"`
	FillColor   string  `json:"fillColor" yaml:"fill_color"`
	TextColor   string  `json:"textColor" yaml:"text_color"`
	FontSize    float64 `json:"fontSize" yaml:"font_size"`
}

// DefaultStyle is used when no style has been configured.
func DefaultStyle() Style {
	return Style{
		StrokeColor: "#1f2937",
		StrokeWidth: 2,
		FillColor:   "transparent",
		TextColor:   "#111827",
		FontSize:    16,
	}
}
