// Package editor binds a single open document to a tab and keeps the tab's
// label in sync with the document's node.
package editor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/filesystem"
	"github.com/brettbedarf/docfs/internal/util"
)

// DefaultTitle is shown while no file is open
const DefaultTitle = "no name"

type Options struct {
	Title   string        // Label before any file is opened (Default "no name")
	Content []byte        // Initial body before any file is opened
	Timeout time.Duration // Bounds content fetches; 0 = caller's context only
}

// Viewer shows one file of a tree at a time. Open binds it to a file,
// Close releases it; a second Open without Close is a caller bug and fails
// with [docfs.ErrAlreadyBound].
type Viewer struct {
	fs    *filesystem.FileSystem
	store docfs.ContentStore
	opts  Options

	mu       sync.Mutex
	tab      docfs.Tab
	file     *filesystem.Node
	listener filesystem.ListenerID
	bound    bool
	title    string
	content  []byte
}

// NewViewer creates an unbound viewer over fs that loads bodies from store.
// A nil fs uses the process-wide tree (see [filesystem.Init]).
func NewViewer(fs *filesystem.FileSystem, store docfs.ContentStore, opts *Options) *Viewer {
	if fs == nil {
		if fs = filesystem.Default(); fs == nil {
			fs = filesystem.Init()
		}
	}
	v := &Viewer{fs: fs, store: store}
	if opts != nil {
		v.opts = *opts
	}
	if v.opts.Title == "" {
		v.opts.Title = DefaultTitle
	}
	v.title = v.opts.Title
	v.content = slices.Clone(v.opts.Content)
	return v
}

// BindTab sets the tab renamed when the open file changes
func (v *Viewer) BindTab(tab docfs.Tab) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tab = tab
}

// Open binds the viewer to the file at path, loads its body from the
// store and starts following the file's changes.
func (v *Viewer) Open(ctx context.Context, path string) error {
	logger := util.GetLogger("Viewer.Open")

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.bound {
		return fmt.Errorf("open %s: %w", path, docfs.ErrAlreadyBound)
	}
	file := v.fs.GetByPath(path)
	if file == nil {
		return fmt.Errorf("open %s: %w", path, docfs.ErrNotFound)
	}
	if file.IsDir() {
		return fmt.Errorf("open %s: %w", path, docfs.ErrIsDir)
	}

	var content []byte
	if v.store != nil {
		fetchCtx, cancel := v.withTimeout(ctx)
		defer cancel()
		data, err := v.store.Get(fetchCtx, file.ContentID())
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		content = data
	}

	v.file = file
	v.content = content
	v.title = file.Name()
	v.listener = file.On(v.onChange)
	v.bound = true

	logger.Debug().Str("path", file.Path()).Str("contentID", file.ContentID()).Msg("Opened file")
	return nil
}

// onChange follows renames of the working file
func (v *Viewer) onChange(file *filesystem.Node) {
	name := file.Name()

	v.mu.Lock()
	if v.file != file {
		v.mu.Unlock()
		return
	}
	v.title = name
	tab := v.tab
	v.mu.Unlock()

	if tab != nil {
		tab.Rename(name)
	}
}

// Close unbinds the viewer and clears its content. No-op when not bound.
func (v *Viewer) Close() {
	logger := util.GetLogger("Viewer.Close")

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.bound {
		return
	}
	v.file.Off(v.listener)
	logger.Debug().Str("path", v.file.Path()).Msg("Closed file")

	v.file = nil
	v.listener = 0
	v.bound = false
	v.content = nil
}

// Save writes data as the working file's body
func (v *Viewer) Save(ctx context.Context, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.bound {
		return docfs.ErrNotBound
	}
	if v.store == nil {
		return fmt.Errorf("save %s: no content store", v.file.Path())
	}
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()
	if err := v.store.Put(ctx, v.file.ContentID(), data); err != nil {
		return fmt.Errorf("save %s: %w", v.file.Path(), err)
	}
	v.content = slices.Clone(data)
	return nil
}

// Bound returns true while a file is open
func (v *Viewer) Bound() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bound
}

// WorkingFile returns the open file or nil
func (v *Viewer) WorkingFile() *filesystem.Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.file
}

func (v *Viewer) Content() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.content)
}

func (v *Viewer) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

func (v *Viewer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, v.opts.Timeout)
}
