package stdlib

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	figureWidth  = 6.4 * vg.Inch
	figureHeight = 4.8 * vg.Inch
	barWidth     = vg.Length(18)
)

// PNG renders the figure's current state.
func (f *Figure) PNG() ([]byte, error) {
	p := plot.New()
	p.Title.Text = f.Title

	for i, s := range f.Series {
		if len(s.Y) == 0 {
			continue
		}
		ps, err := s.plotter(i)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		p.Add(ps)
	}

	canvas := vgimg.New(figureWidth, figureHeight)
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s Series) plotter(i int) (plot.Plotter, error) {
	switch s.Kind {
	case SeriesScatter:
		sc, err := plotter.NewScatter(s.points())
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		return sc, nil
	case SeriesBar:
		b, err := plotter.NewBarChart(plotter.Values(s.Y), barWidth)
		if err != nil {
			return nil, err
		}
		b.XMin = s.X[0]
		b.Color = plotutil.Color(i)
		b.LineStyle.Width = 0
		return b, nil
	}
	l, err := plotter.NewLine(s.points())
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = plotutil.Color(i)
	return l, nil
}

func (s Series) points() plotter.XYs {
	xys := make(plotter.XYs, len(s.X))
	for i := range s.X {
		xys[i].X, xys[i].Y = s.X[i], s.Y[i]
	}
	return xys
}

// DataURI renders the figure as a base64 PNG data URI.
func (f *Figure) DataURI() (string, error) {
	data, err := f.PNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
