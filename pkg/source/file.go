package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// File decodes its image once, on first use, and hands every caller an
// independent copy so output variants never share pixels.
type File struct {
	Path string

	once  sync.Once
	frame *tonemap.Frame
	err   error
}

func NewFile(path string) *File {
	return &File{Path: path}
}

// FromFrame wraps an already decoded frame, e.g. one read from stdin.
func FromFrame(name string, frame *tonemap.Frame) *File {
	f := &File{Path: name, frame: frame}
	f.once.Do(func() {})
	return f
}

func (f *File) Frame() (*tonemap.Frame, error) {
	f.once.Do(func() { f.frame, f.err = Load(f.Path) })
	if f.err != nil {
		return nil, f.err
	}
	return f.frame.Clone(), nil
}

// Name is the file's base name without extension.
func (f *File) Name() string {
	base := filepath.Base(f.Path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Expand walks the arguments: files are taken as given, directories
// contribute the supported image files they contain, recursively, in
// name order.
func Expand(args ...string) ([]string, error) {
	files := []string{}
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {
		case err != nil:
			return nil, fmt.Errorf("load %s: %w", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %w", arg, err)
			}
			sort.Slice(contents, func(i, j int) bool { return contents[i].Name() < contents[j].Name() })
			for _, content := range contents {
				path := filepath.Join(arg, content.Name())
				if _, ok := FormatOf(path); !ok && !content.IsDir() {
					continue
				}
				sub, err := Expand(path)
				if err != nil {
					return nil, err
				}
				files = append(files, sub...)
			}

		default:
			if _, ok := FormatOf(arg); !ok {
				return nil, decodeErr(arg, fmt.Errorf("unsupported extension '%s'", filepath.Ext(arg)))
			}
			files = append(files, arg)
		}
	}
	return files, nil
}
