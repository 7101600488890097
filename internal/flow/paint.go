package flow

import "image/color"

// Canvas hands out one drawing layer per painting filter.
type Canvas interface {
	Layer(name string) Layer
}

// Layer receives overlay primitives in image coordinates.
type Layer interface {
	Point(x, y float64, c color.Color)
	Line(x0, y0, x1, y1 float64, c color.Color)
	Text(x, y float64, s string, c color.Color)
}
