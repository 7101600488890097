package overlay

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var defaultColor = color.RGBA{A: 255}

func colorOf(c color.Color) color.Color {
	if c == nil {
		return defaultColor
	}
	return c
}

// RenderPNG draws the primitives painted for counter into a PNG at path.
// Each layer becomes one legend entry.
func RenderPNG(c *Canvas, counter int, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d", counter)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	frame := c.Frame(counter)
	for _, name := range c.Layers() {
		prims := frame[name]
		if len(prims) == 0 {
			continue
		}
		if err := addLayer(p, name, prims); err != nil {
			return fmt.Errorf("layer %s: %w", name, err)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save overlay plot: %w", err)
	}
	return nil
}

func addLayer(p *plot.Plot, name string, prims []Primitive) error {
	var (
		pts     plotter.XYs
		ptColor []color.Color
		labels  plotter.XYLabels
		legend  bool
	)
	for _, prim := range prims {
		switch prim.Kind {
		case KindPoint:
			pts = append(pts, plotter.XY{X: prim.X0, Y: prim.Y0})
			ptColor = append(ptColor, colorOf(prim.Color))
		case KindLine:
			l, err := plotter.NewLine(plotter.XYs{{X: prim.X0, Y: prim.Y0}, {X: prim.X1, Y: prim.Y1}})
			if err != nil {
				return err
			}
			l.Color = colorOf(prim.Color)
			l.Width = vg.Points(1)
			p.Add(l)
			if !legend {
				p.Legend.Add(name, l)
				legend = true
			}
		case KindText:
			labels.XYs = append(labels.XYs, plotter.XY{X: prim.X0, Y: prim.Y0})
			labels.Labels = append(labels.Labels, prim.Text)
		}
	}

	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			gs := s.GlyphStyle
			gs.Color = ptColor[i]
			gs.Shape = draw.CircleGlyph{}
			return gs
		}
		p.Add(s)
		if !legend {
			p.Legend.Add(name, s)
			legend = true
		}
	}
	if len(labels.Labels) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return err
		}
		p.Add(l)
	}
	return nil
}
