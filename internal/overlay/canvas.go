// Package overlay collects what filters paint for a frame and renders it
// for offline inspection.
package overlay

import (
	"image/color"
	"sort"
	"sync"

	"github.com/banshee-data/fliplane/internal/flow"
)

// Kind is the shape of a primitive.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindText
)

// Primitive is one painted element. Lines use both coordinate pairs, points
// and text only the first.
type Primitive struct {
	Frame  int
	Kind   Kind
	X0, Y0 float64
	X1, Y1 float64
	Text   string
	Color  color.Color
}

// Canvas stores primitives per layer, tagged with the frame that was
// current when they were painted. It implements flow.Canvas.
type Canvas struct {
	mu     sync.Mutex
	frame  int
	layers map[string][]Primitive
}

func NewCanvas() *Canvas {
	return &Canvas{layers: make(map[string][]Primitive)}
}

// SetFrame sets the frame counter attached to subsequent primitives.
func (c *Canvas) SetFrame(counter int) {
	c.mu.Lock()
	c.frame = counter
	c.mu.Unlock()
}

func (c *Canvas) Layer(name string) flow.Layer {
	c.mu.Lock()
	if _, ok := c.layers[name]; !ok {
		c.layers[name] = nil
	}
	c.mu.Unlock()
	return &layer{canvas: c, name: name}
}

// Layers returns the layer names in lexical order.
func (c *Canvas) Layers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.layers))
	for name := range c.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Primitives returns the primitives of one layer in painting order.
func (c *Canvas) Primitives(name string) []Primitive {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Primitive(nil), c.layers[name]...)
}

// Frame returns every primitive painted for counter, by layer.
func (c *Canvas) Frame(counter int) map[string][]Primitive {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]Primitive)
	for name, prims := range c.layers {
		for _, p := range prims {
			if p.Frame == counter {
				out[name] = append(out[name], p)
			}
		}
	}
	return out
}

// Clear removes all layers.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.layers = make(map[string][]Primitive)
	c.mu.Unlock()
}

func (c *Canvas) add(name string, p Primitive) {
	c.mu.Lock()
	p.Frame = c.frame
	c.layers[name] = append(c.layers[name], p)
	c.mu.Unlock()
}

type layer struct {
	canvas *Canvas
	name   string
}

func (l *layer) Point(x, y float64, c color.Color) {
	l.canvas.add(l.name, Primitive{Kind: KindPoint, X0: x, Y0: y, Color: c})
}

func (l *layer) Line(x0, y0, x1, y1 float64, c color.Color) {
	l.canvas.add(l.name, Primitive{Kind: KindLine, X0: x0, Y0: y0, X1: x1, Y1: y1, Color: c})
}

func (l *layer) Text(x, y float64, s string, c color.Color) {
	l.canvas.add(l.name, Primitive{Kind: KindText, X0: x, Y0: y, Text: s, Color: c})
}
