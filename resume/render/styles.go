package render

// RunStyle captures the font treatment of a block.
type RunStyle struct {
	Bold   bool
	Italic bool
	SizePt float64
	Color  string
}

const (
	HeadingColor = "1F2937"
	BodyColor    = "111111"
	BodySize     = 11.0
	CodeSize     = 9.5
	CodeFill     = "F2F2F2"
)

// headingSizes maps heading level to point size. Levels past the table use the last entry.
var headingSizes = []float64{20, 16, 14, 12}

// HeadingStyle returns the style for a heading level, clamped to 1..6.
func HeadingStyle(level int) RunStyle {
	if level < 1 {
		level = 1
	}
	idx := level - 1
	if idx >= len(headingSizes) {
		idx = len(headingSizes) - 1
	}
	return RunStyle{Bold: true, SizePt: headingSizes[idx], Color: HeadingColor}
}

// halfPoints converts points to the WordprocessingML size unit.
func halfPoints(pt float64) int {
	return int(pt*2 + 0.5)
}
