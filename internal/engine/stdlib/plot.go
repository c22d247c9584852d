package stdlib

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Series kinds drawn by a Figure.
const (
	SeriesLine    = "line"
	SeriesScatter = "scatter"
	SeriesBar     = "bar"
)

type Series struct {
	Kind string
	X    []float64
	Y    []float64
}

// Figure accumulates series across statements. It is rendered only when its
// final state is needed.
type Figure struct {
	Title  string
	Series []Series
}

var (
	_ starlark.HasAttrs    = (*Figure)(nil)
	_ starlark.HasSetField = (*Figure)(nil)
)

func (f *Figure) String() string        { return fmt.Sprintf("<figure %q with %d series>", f.Title, len(f.Series)) }
func (f *Figure) Type() string          { return "figure" }
func (f *Figure) Freeze()               {}
func (f *Figure) Truth() starlark.Bool  { return starlark.True }
func (f *Figure) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: figure") }

func (f *Figure) Attr(name string) (starlark.Value, error) {
	switch name {
	case "title":
		return starlark.String(f.Title), nil
	case "line", "scatter":
		kind := name
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var xs, ys starlark.Value
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &xs, "y?", &ys); err != nil {
				return nil, err
			}
			if err := f.add(kind, xs, ys); err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			return f, nil
		}).BindReceiver(f), nil
	case "bar":
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var heights starlark.Value
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "height", &heights); err != nil {
				return nil, err
			}
			if err := f.add(SeriesBar, heights, nil); err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			return f, nil
		}).BindReceiver(f), nil
	}
	return nil, nil
}

func (f *Figure) AttrNames() []string { return []string{"bar", "line", "scatter", "title"} }

func (f *Figure) SetField(name string, v starlark.Value) error {
	if name != "title" {
		return starlark.NoSuchAttrError(fmt.Sprintf("figure has no settable field .%s", name))
	}
	title, ok := starlark.AsString(v)
	if !ok {
		return fmt.Errorf("figure.title must be a string, got %s", v.Type())
	}
	f.Title = title
	return nil
}

// add appends a series. With one sequence it is taken as y values over
// 0..n-1.
func (f *Figure) add(kind string, xs, ys starlark.Value) error {
	first, err := floats(xs)
	if err != nil {
		return err
	}
	if ys == nil || ys == starlark.None {
		x := make([]float64, len(first))
		for i := range x {
			x[i] = float64(i)
		}
		f.Series = append(f.Series, Series{Kind: kind, X: x, Y: first})
		return nil
	}
	second, err := floats(ys)
	if err != nil {
		return err
	}
	if len(first) != len(second) {
		return fmt.Errorf("x and y must have the same length, got %d and %d", len(first), len(second))
	}
	f.Series = append(f.Series, Series{Kind: kind, X: first, Y: second})
	return nil
}

func floats(v starlark.Value) ([]float64, error) {
	if arr, ok := v.(*Array); ok {
		v = arr.ToList()
	}
	values, err := collect(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, x := range values {
		f, ok := starlark.AsFloat(x)
		if !ok {
			return nil, fmt.Errorf("element %d is %s, want number", i, x.Type())
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("element %d is not finite", i)
		}
		out[i] = f
	}
	return out, nil
}

// Artist is a value drawn on a figure. An artist output renders the figure
// that owns it.
type Artist interface {
	starlark.Value
	Owner() *Figure
}

var (
	_ Artist = (*Figure)(nil)
	_ Artist = (*Line)(nil)
)

func (f *Figure) Owner() *Figure { return f }

// Line is one series added by plot.plot.
type Line struct {
	fig   *Figure
	index int
}

func (l *Line) String() string        { return fmt.Sprintf("<line %d of figure %q>", l.index, l.fig.Title) }
func (l *Line) Type() string          { return "line" }
func (l *Line) Freeze()               {}
func (l *Line) Truth() starlark.Bool  { return starlark.True }
func (l *Line) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: line") }
func (l *Line) Owner() *Figure        { return l.fig }

// ArtistList is the bar group returned by plot.hist. It never appears as an
// output.
type ArtistList struct {
	count int
}

func (a *ArtistList) String() string        { return fmt.Sprintf("<%d artists>", a.count) }
func (a *ArtistList) Type() string          { return "artist_list" }
func (a *ArtistList) Freeze()               {}
func (a *ArtistList) Truth() starlark.Bool  { return a.count > 0 }
func (a *ArtistList) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: artist_list") }

// Plotter holds the current figure of one runtime.
type Plotter struct {
	current *Figure
}

func NewPlotter() *Plotter { return &Plotter{} }

// Current returns the current figure, or nil when none was created.
func (p *Plotter) Current() *Figure { return p.current }

func (p *Plotter) gcf() *Figure {
	if p.current == nil {
		p.current = &Figure{}
	}
	return p.current
}

// Module builds the `plot` module bound to this plotter.
func (p *Plotter) Module() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "plot",
		Members: starlark.StringDict{
			"figure": starlark.NewBuiltin("figure", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var title string
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "title?", &title); err != nil {
					return nil, err
				}
				p.current = &Figure{Title: title}
				return p.current, nil
			}),
			"gcf": starlark.NewBuiltin("gcf", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
					return nil, err
				}
				return p.gcf(), nil
			}),
			"plot": starlark.NewBuiltin("plot", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var xs, ys starlark.Value
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &xs, "y?", &ys); err != nil {
					return nil, err
				}
				fig := p.gcf()
				if err := fig.add(SeriesLine, xs, ys); err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				return starlark.NewList([]starlark.Value{&Line{fig: fig, index: len(fig.Series) - 1}}), nil
			}),
			"hist": starlark.NewBuiltin("hist", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var xs starlark.Value
				bins := 10
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &xs, "bins?", &bins); err != nil {
					return nil, err
				}
				if bins < 1 {
					return nil, fmt.Errorf("%s: bins must be positive, got %d", b.Name(), bins)
				}
				values, err := floats(xs)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				counts, edges := histogram(values, bins)
				heights := make([]starlark.Value, bins)
				countList := make([]starlark.Value, bins)
				for i, c := range counts {
					heights[i] = starlark.Float(c)
					countList[i] = starlark.MakeInt(c)
				}
				if err := p.gcf().add(SeriesBar, starlark.NewList(heights), nil); err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				edgeList := make([]starlark.Value, len(edges))
				for i, e := range edges {
					edgeList[i] = starlark.Float(e)
				}
				return starlark.Tuple{starlark.NewList(countList), starlark.NewList(edgeList), &ArtistList{count: bins}}, nil
			}),
		},
	}
}

// histogram counts values into bins equal-width bins. The last bin includes
// its upper edge. A degenerate range is widened by half a unit each side.
func histogram(values []float64, bins int) ([]int, []float64) {
	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = values[0], values[0]
		for _, v := range values[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, v := range values {
		i := min(int((v-lo)/width), bins-1)
		counts[i]++
	}
	return counts, edges
}
