package stdlib

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func run(t *testing.T, src string, predeclared starlark.StringDict) starlark.StringDict {
	t.Helper()
	thread := &starlark.Thread{Name: t.Name()}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{TopLevelControl: true}, thread, "test.star", src, predeclared)
	require.NoError(t, err)
	return globals
}

func TestFrame(t *testing.T) {
	globals := run(t, `
f = data.frame({"a": [1, 2], "b": [1.5, 2]}, c=["x", "y"], d=[True, False], e=[1, "x"])
shape = f.shape
cols = f.columns
b = f["b"]
`, starlark.StringDict{"data": DataModule()})

	frame, ok := globals["f"].(*Frame)
	require.True(t, ok)
	assert.Equal(t, "(2, 5)", globals["shape"].String())
	assert.Equal(t, `["a", "b", "c", "d", "e"]`, globals["cols"].String())
	assert.Equal(t, "[1.5, 2]", globals["b"].String())

	var dtypes []string
	for _, c := range frame.Columns() {
		dtypes = append(dtypes, c.DType())
	}
	assert.Equal(t, []string{DTypeInt, DTypeFloat, DTypeString, DTypeBool, DTypeObject}, dtypes)
}

func TestFrame_RaggedColumns(t *testing.T) {
	thread := &starlark.Thread{}
	_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "test.star",
		`f = data.frame(a=[1, 2], b=[1])`, starlark.StringDict{"data": DataModule()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 1 rows, want 2")
}

func TestArray(t *testing.T) {
	globals := run(t, `
a = data.array([[1, 2, 3], [4, 5, 6]])
shape = a.shape
ndim = a.ndim
row = a[1]
back = a.tolist()
`, starlark.StringDict{"data": DataModule()})

	assert.Equal(t, "(2, 3)", globals["shape"].String())
	assert.Equal(t, "2", globals["ndim"].String())
	assert.Equal(t, "[4, 5, 6]", globals["row"].(*Array).ToList().String())
	assert.Equal(t, "[[1, 2, 3], [4, 5, 6]]", globals["back"].String())
}

func TestArray_Inhomogeneous(t *testing.T) {
	thread := &starlark.Thread{}
	_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "test.star",
		`a = data.array([[1, 2], [3]])`, starlark.StringDict{"data": DataModule()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inhomogeneous")
}

func TestPlot(t *testing.T) {
	plotter := NewPlotter()
	globals := run(t, `
artists = plot.plot([1, 2, 3], [2, 4, 1])
fig = plot.gcf()
fig.title = "growth"
same = fig.scatter([1, 2], [3, 4]).bar([1, 2, 3])
`, starlark.StringDict{"plot": plotter.Module()})

	fig := plotter.Current()
	require.NotNil(t, fig)
	artists := globals["artists"].(*starlark.List)
	require.Equal(t, 1, artists.Len())
	line, ok := artists.Index(0).(*Line)
	require.True(t, ok)
	assert.Same(t, fig, line.Owner())
	assert.Same(t, fig, globals["fig"])
	assert.Same(t, fig, globals["same"])
	assert.Equal(t, "growth", fig.Title)
	require.Len(t, fig.Series, 3)
	assert.Equal(t, []float64{0, 1, 2}, fig.Series[2].X)

	uri, err := fig.DataURI()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestPlot_EmptyFigureRenders(t *testing.T) {
	data, err := (&Figure{}).PNG()
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestPlot_Hist(t *testing.T) {
	plotter := NewPlotter()
	globals := run(t, `
counts, edges, bars = plot.hist([1, 2, 2, 3, 3, 3], bins=2)
flat = plot.hist([5, 5], bins=1)
`, starlark.StringDict{"plot": plotter.Module()})

	assert.Equal(t, "[1, 5]", globals["counts"].String())
	assert.Equal(t, "[1.0, 2.0, 3.0]", globals["edges"].String())
	_, silent := globals["bars"].(*ArtistList)
	assert.True(t, silent)
	assert.Equal(t, "([2], [4.5, 5.5], <1 artists>)", globals["flat"].String())

	fig := plotter.Current()
	require.Len(t, fig.Series, 2)
	assert.Equal(t, SeriesBar, fig.Series[0].Kind)
	assert.Equal(t, []float64{1, 5}, fig.Series[0].Y)
	_, err := fig.PNG()
	require.NoError(t, err)
}

func TestPlot_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "inf", code: `plot.figure().line([0.0, float('inf')], [0.0, 1.0])`},
		{name: "nan", code: `plot.figure().scatter([0.0, 1.0], [float('nan'), 1.0])`},
		{name: "negative inf", code: `plot.plot([float('-inf')])`},
		{name: "hist", code: `plot.hist([1.0, float('nan')])`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plotter := NewPlotter()
			_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, &starlark.Thread{}, "test.star",
				tt.code, starlark.StringDict{"plot": plotter.Module()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not finite")
			if fig := plotter.Current(); fig != nil {
				assert.Empty(t, fig.Series)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	globals := run(t, `
f = open(path)
lines = f.readlines()
f.close()
w = open(out, "w")
n = w.write("hello")
w.close()
`, starlark.StringDict{
		"open": Open,
		"path": starlark.String(path),
		"out":  starlark.String(path + ".out"),
	})

	assert.Equal(t, `["one\n", "two\n"]`, globals["lines"].String())
	assert.Equal(t, "5", globals["n"].String())
	written, err := os.ReadFile(path + ".out")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(written))
}

func TestOpen_InvalidMode(t *testing.T) {
	_, err := openFlags("q")
	assert.Error(t, err)
}
