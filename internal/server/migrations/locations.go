package migrations

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"
)

// Locations presents the files of several directories of root as a single
// flat directory, which is the layout goose expects. Two locations must not
// contain files with the same name.
func Locations(root fs.FS, names ...string) (fs.FS, error) {
	files := make(map[string]string)

	for _, loc := range names {
		entries, err := fs.ReadDir(root, loc)
		if err != nil {
			return nil, fmt.Errorf("migration location %q: %w", loc, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if prev, ok := files[e.Name()]; ok {
				return nil, fmt.Errorf("migration %s found in both %s and %s", e.Name(), path.Dir(prev), loc)
			}
			files[e.Name()] = path.Join(loc, e.Name())
		}
	}

	return &flatFS{root: root, files: files}, nil
}

type flatFS struct {
	root  fs.FS
	files map[string]string
}

func (f *flatFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &flatDir{fsys: f}, nil
	}
	full, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f.root.Open(full)
}

func (f *flatFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	entries := make([]fs.DirEntry, 0, len(f.files))
	for base, full := range f.files {
		info, err := fs.Stat(f.root, full)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fs.FileInfoToDirEntry(renamed{FileInfo: info, name: base}))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return entries, nil
}

type renamed struct {
	fs.FileInfo
	name string
}

func (r renamed) Name() string { return r.name }

// flatDir is the root directory handle returned by Open(".").
type flatDir struct {
	fsys    *flatFS
	entries []fs.DirEntry
	offset  int
	loaded  bool
}

var errIsDir = errors.New("is a directory")

func (d *flatDir) Stat() (fs.FileInfo, error) { return dirInfo{}, nil }
func (d *flatDir) Close() error               { return nil }
func (d *flatDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: errIsDir}
}

func (d *flatDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.loaded {
		entries, err := d.fsys.ReadDir(".")
		if err != nil {
			return nil, err
		}
		d.entries, d.loaded = entries, true
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if len(rest) > n {
		rest = rest[:n]
	}
	d.offset += len(rest)
	return rest, nil
}

type dirInfo struct{}

func (dirInfo) Name() string       { return "." }
func (dirInfo) Size() int64        { return 0 }
func (dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (dirInfo) ModTime() time.Time { return time.Time{} }
func (dirInfo) IsDir() bool        { return true }
func (dirInfo) Sys() any           { return nil }
