package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.starlark.net/starlark"
)

// Open is the `open(path, mode="r")` builtin.
var Open = starlark.NewBuiltin("open", open)

func open(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	mode := "r"
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "file", &path, "mode?", &mode); err != nil {
		return nil, err
	}
	flag, err := openFlags(mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &File{name: path, mode: mode, f: f}, nil
}

func openFlags(mode string) (int, error) {
	plus := strings.Contains(mode, "+")
	switch {
	case strings.Contains(mode, "r"):
		if plus {
			return os.O_RDWR, nil
		}
		return os.O_RDONLY, nil
	case strings.Contains(mode, "w"):
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
		}
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case strings.Contains(mode, "a"):
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
		}
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case strings.Contains(mode, "x"):
		return os.O_WRONLY | os.O_CREATE | os.O_EXCL, nil
	}
	return 0, fmt.Errorf("invalid mode: %q", mode)
}

// File is an open file handle.
type File struct {
	name   string
	mode   string
	f      *os.File
	closed bool
}

var _ starlark.HasAttrs = (*File)(nil)

func (f *File) String() string        { return fmt.Sprintf("<file %q mode %q>", f.name, f.mode) }
func (f *File) Type() string          { return "file" }
func (f *File) Freeze()               {}
func (f *File) Truth() starlark.Bool  { return starlark.True }
func (f *File) Hash() (uint32, error) { return starlark.String(f.name).Hash() }

func (f *File) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(f.name), nil
	case "mode":
		return starlark.String(f.mode), nil
	case "closed":
		return starlark.Bool(f.closed), nil
	case "read":
		return f.method(name, func(starlark.Tuple) (starlark.Value, error) {
			data, err := io.ReadAll(f.f)
			if err != nil {
				return nil, err
			}
			return starlark.String(data), nil
		}), nil
	case "readlines":
		return f.method(name, func(starlark.Tuple) (starlark.Value, error) {
			var lines []starlark.Value
			r := bufio.NewReader(f.f)
			for {
				s, err := r.ReadString('\n')
				if s != "" {
					lines = append(lines, starlark.String(s))
				}
				if err == io.EOF {
					return starlark.NewList(lines), nil
				}
				if err != nil {
					return nil, err
				}
			}
		}), nil
	case "write":
		return f.method(name, func(args starlark.Tuple) (starlark.Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("write: got %d arguments, want 1", len(args))
			}
			s, ok := starlark.AsString(args[0])
			if !ok {
				return nil, fmt.Errorf("write: got %s, want string", args[0].Type())
			}
			n, err := f.f.WriteString(s)
			if err != nil {
				return nil, err
			}
			return starlark.MakeInt(n), nil
		}), nil
	case "close":
		return f.method(name, func(starlark.Tuple) (starlark.Value, error) {
			return starlark.None, f.Close()
		}), nil
	}
	return nil, nil
}

func (f *File) AttrNames() []string {
	return []string{"close", "closed", "mode", "name", "read", "readlines", "write"}
}

// Close is idempotent.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.f.Close()
}

func (f *File) method(name string, fn func(args starlark.Tuple) (starlark.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		if f.closed && name != "close" {
			return nil, fmt.Errorf("%s: I/O operation on closed file", b.Name())
		}
		return fn(args)
	}).BindReceiver(f)
}
