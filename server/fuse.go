package server

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/filesystem"
	"github.com/brettbedarf/docfs/internal/util"
)

const (
	dirMode  = syscall.S_IFDIR | 0o555
	fileMode = syscall.S_IFREG | 0o444
	blksize  = 4096
)

// FuseRaw implements the low-level FUSE wire protocol on top of a tree.
// It is read-only: directories come from the tree and file bytes from the
// content store.
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	fs     *filesystem.FileSystem
	store  docfs.ContentStore
	cfg    *config.Config
	server *fuse.Server
	start  time.Time

	// Node IDs are keyed by contentID so they survive renames and moves
	nodeIDs    *xsync.Map[string, uint64]
	contentIDs *xsync.Map[uint64, string]
	lastNodeID atomic.Uint64

	handles    *xsync.Map[uint64, []byte] // open file bodies by handle
	lastHandle atomic.Uint64
}

func NewFuseRaw(fs *filesystem.FileSystem, store docfs.ContentStore, cfg *config.Config) *FuseRaw {
	if cfg == nil {
		cfg = config.NewConfig(nil)
	}
	r := &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            fs,
		store:         store,
		cfg:           cfg,
		start:         time.Now(),
		nodeIDs:       xsync.NewMap[string, uint64](),
		contentIDs:    xsync.NewMap[uint64, string](),
		handles:       xsync.NewMap[uint64, []byte](),
	}
	r.lastNodeID.Store(fuse.FUSE_ROOT_ID)
	r.nodeIDs.Store(filesystem.RootContentID, fuse.FUSE_ROOT_ID)
	r.contentIDs.Store(fuse.FUSE_ROOT_ID, filesystem.RootContentID)
	return r
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Msg("FUSE unmounted")
}

func (r *FuseRaw) String() string {
	return "FuseRaw"
}

// nodeID returns the stable node ID for contentID, allocating one if needed
func (r *FuseRaw) nodeID(contentID string) uint64 {
	if id, ok := r.nodeIDs.Load(contentID); ok {
		return id
	}
	id, loaded := r.nodeIDs.LoadOrStore(contentID, r.lastNodeID.Add(1))
	if !loaded {
		r.contentIDs.Store(id, contentID)
	}
	return id
}

// node resolves a kernel node ID to its current tree node
func (r *FuseRaw) node(id uint64) *filesystem.Node {
	contentID, ok := r.contentIDs.Load(id)
	if !ok {
		return nil
	}
	return r.fs.GetByContentID(contentID)
}

// fetch loads a file body bounded by the store timeout and the kernel's
// cancel channel
func (r *FuseRaw) fetch(cancel <-chan struct{}, n *filesystem.Node) ([]byte, error) {
	ctx, stop := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer stop()
	go func() {
		select {
		case <-cancel:
			stop()
		case <-ctx.Done():
		}
	}()
	return r.store.Get(ctx, n.ContentID())
}

// fillAttr sets out for n. File sizes come from the content store; an
// unreachable body reports size 0.
func (r *FuseRaw) fillAttr(cancel <-chan struct{}, n *filesystem.Node, id uint64, out *fuse.Attr) {
	out.Ino = id
	out.Blksize = blksize
	out.Owner = fuse.Owner{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
	out.SetTimes(&r.start, &r.start, &r.start)

	if n.IsDir() {
		out.Mode = dirMode
		out.Nlink = 2
		return
	}
	out.Mode = fileMode
	out.Nlink = 1
	if r.store == nil {
		return
	}
	data, err := r.fetch(cancel, n)
	if err != nil {
		logger := util.GetLogger("Fuse.Attr")
		logger.Debug().Err(err).Str("path", n.Path()).Msg("Content unavailable")
		return
	}
	out.Size = uint64(len(data))
	out.Blocks = (out.Size + 511) / 512
}

func (r *FuseRaw) timeout(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Lookup is called by the kernel when the VFS wants to know
// about a file inside a directory.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	parent := r.node(header.NodeId)
	if parent == nil || !filesystem.ValidName(name) {
		return fuse.ENOENT
	}
	if !parent.IsDir() {
		return fuse.ENOTDIR
	}
	child := r.fs.GetByPath(filesystem.Join(parent.Path(), name))
	if child == nil {
		return fuse.ENOENT
	}

	id := r.nodeID(child.ContentID())
	out.NodeId = id
	r.fillAttr(cancel, child, id, &out.Attr)
	out.SetEntryTimeout(r.timeout(r.cfg.EntryTimeout))
	out.SetAttrTimeout(r.timeout(r.cfg.AttrTimeout))
	return fuse.OK
}

// Forget keeps node IDs: they are bound to contentIDs for the lifetime
// of the mount.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {
	logger := util.GetLogger("Fuse.Forget")
	logger.Trace().Uint64("node", nodeid).Uint64("nlookup", nlookup).Msg("Forget called")
}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	n := r.node(input.NodeId)
	if n == nil {
		return fuse.ENOENT
	}
	r.fillAttr(cancel, n, input.NodeId, &out.Attr)
	out.SetTimeout(r.timeout(r.cfg.AttrTimeout))
	return fuse.OK
}

func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	if input.Mask&2 != 0 { // W_OK
		return fuse.Status(syscall.EROFS)
	}
	return fuse.OK
}

// Open fetches the whole body once and serves reads from the handle
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	logger := util.GetLogger("Fuse.Open")

	n := r.node(input.NodeId)
	if n == nil {
		return fuse.ENOENT
	}
	if n.IsDir() {
		return fuse.EISDIR
	}
	if input.Flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return fuse.Status(syscall.EROFS)
	}
	if r.store == nil {
		return fuse.EIO
	}
	data, err := r.fetch(cancel, n)
	if err != nil {
		logger.Error().Err(err).Str("path", n.Path()).Msg("Failed to fetch content")
		return fuse.EIO
	}

	fh := r.lastHandle.Add(1)
	r.handles.Store(fh, data)
	out.Fh = fh
	logger.Debug().Str("path", n.Path()).Uint64("fh", fh).Int("size", len(data)).Msg("Opened file")
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	data, ok := r.handles.Load(input.Fh)
	if !ok {
		return nil, fuse.Status(syscall.EBADF)
	}
	if input.Offset >= uint64(len(data)) {
		return fuse.ReadResultData(nil), fuse.OK
	}
	end := min(input.Offset+uint64(input.Size), uint64(len(data)))
	return fuse.ReadResultData(data[input.Offset:end]), fuse.OK
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	r.handles.Delete(input.Fh)
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	n := r.node(input.NodeId)
	if n == nil {
		return fuse.ENOENT
	}
	if !n.IsDir() {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

// dirEntries lists "." and ".." followed by the directory's children in
// tree order
func (r *FuseRaw) dirEntries(id uint64) ([]fuse.DirEntry, fuse.Status) {
	dir := r.node(id)
	if dir == nil {
		return nil, fuse.ENOENT
	}
	if !dir.IsDir() {
		return nil, fuse.ENOTDIR
	}

	parentID := uint64(fuse.FUSE_ROOT_ID)
	if parent := r.fs.GetByPath(dir.ParentPath()); parent != nil && id != fuse.FUSE_ROOT_ID {
		parentID = r.nodeID(parent.ContentID())
	}
	entries := []fuse.DirEntry{
		{Name: ".", Mode: dirMode, Ino: id},
		{Name: "..", Mode: dirMode, Ino: parentID},
	}
	for _, child := range r.fs.ListChildren(dir.Path()) {
		mode := uint32(fileMode)
		if child.IsDir() {
			mode = dirMode
		}
		entries = append(entries, fuse.DirEntry{
			Name: child.Name(),
			Mode: mode,
			Ino:  r.nodeID(child.ContentID()),
		})
	}
	return entries, fuse.OK
}

func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	entries, status := r.dirEntries(input.NodeId)
	if !status.Ok() {
		return status
	}
	for i := input.Offset; i < uint64(len(entries)); i++ {
		if !out.AddDirEntry(entries[i]) {
			// buffer full; the kernel calls again with a new offset
			break
		}
	}
	return fuse.OK
}

func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, status := r.dirEntries(input.NodeId)
	if !status.Ok() {
		return status
	}
	for i := input.Offset; i < uint64(len(entries)); i++ {
		e := entries[i]
		entryOut := out.AddDirLookupEntry(e)
		if entryOut == nil {
			break
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		n := r.node(e.Ino)
		if n == nil {
			continue
		}
		entryOut.NodeId = e.Ino
		r.fillAttr(cancel, n, e.Ino, &entryOut.Attr)
		entryOut.SetEntryTimeout(r.timeout(r.cfg.EntryTimeout))
		entryOut.SetAttrTimeout(r.timeout(r.cfg.AttrTimeout))
	}
	return fuse.OK
}

func (r *FuseRaw) ReleaseDir(input *fuse.ReleaseIn) {}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.Bsize = blksize
	out.NameLen = 255
	out.Files = uint64(r.fs.Len())
	return fuse.OK
}
