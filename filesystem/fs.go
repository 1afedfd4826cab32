package filesystem

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/google/uuid"
)

// FileSystem is the virtual filesystem tree. It owns a single root directory
// and keeps path and contentID indices in step with every mutation.
//
// Absence and conflicts are reported with false or nil, never with errors.
type FileSystem struct {
	root        *Node            // Root of node tree
	byPath      map[string]*Node // Cleaned path -> node; root excluded
	byContentID map[string]*Node // contentID -> node; root included
	mu          sync.RWMutex     // Serializes tree mutations; protects the maps
}

var defaultFS atomic.Pointer[FileSystem]

// Init creates the process-wide tree at editor session start. Later calls
// return the existing tree without reinitializing it.
func Init() *FileSystem {
	logger := util.GetLogger("FS.Init")
	if defaultFS.CompareAndSwap(nil, NewFS()) {
		logger.Info().Msg("Initialized filesystem tree")
	} else {
		logger.Warn().Msg("Filesystem tree already initialized")
	}
	return defaultFS.Load()
}

// Default returns the process-wide tree or nil before [Init]
func Default() *FileSystem {
	return defaultFS.Load()
}

// NewFS creates an empty tree with only the root directory
func NewFS() *FileSystem {
	root := newRoot()
	fs := &FileSystem{
		root:        root,
		byPath:      make(map[string]*Node),
		byContentID: make(map[string]*Node),
	}
	root.tree = fs
	fs.byContentID[RootContentID] = root
	return fs
}

// Root returns the root directory
func (fs *FileSystem) Root() *Node {
	return fs.root
}

// Len returns the number of nodes below the root
func (fs *FileSystem) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.byPath)
}

/* Lookup */

// GetByPath returns the node at p or nil. "@" and "" resolve to the root.
func (fs *FileSystem) GetByPath(p string) *Node {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.getByPathLocked(Clean(p))
}

// getByPathLocked expects a cleaned path
func (fs *FileSystem) getByPathLocked(p string) *Node {
	if p == "" {
		return fs.root
	}
	return fs.byPath[p]
}

// GetByContentID returns the node with contentID or nil
func (fs *FileSystem) GetByContentID(contentID string) *Node {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.byContentID[contentID]
}

func (fs *FileSystem) ExistsByPath(p string) bool {
	return fs.GetByPath(p) != nil
}

func (fs *FileSystem) ExistsByContentID(contentID string) bool {
	return fs.GetByContentID(contentID) != nil
}

/* Mutation */

// MakeDirectory appends a new directory described by desc to its parent.
// Returns false if the parent is missing or the path or contentID is taken.
// An empty contentID is replaced with a fresh UUID.
func (fs *FileSystem) MakeDirectory(desc docfs.NodeDescriptor) bool {
	desc.Type = docfs.DirType
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.makeNodeLocked(desc, false) != nil
}

// MakeFile is the file counterpart of [FileSystem.MakeDirectory]
func (fs *FileSystem) MakeFile(desc docfs.NodeDescriptor) bool {
	desc.Type = docfs.FileType
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.makeNodeLocked(desc, false) != nil
}

func (fs *FileSystem) makeNodeLocked(desc docfs.NodeDescriptor, placeholder bool) *Node {
	logger := util.GetLogger("FS.MakeNode")

	desc.ParentPath = Clean(desc.ParentPath)
	if !ValidName(desc.Name) {
		logger.Warn().Str("name", desc.Name).Msg("Invalid node name")
		return nil
	}
	p := Join(desc.ParentPath, desc.Name)
	if _, ok := fs.byPath[p]; ok {
		logger.Debug().Str("path", p).Msg("Node already exists")
		return nil
	}
	parent := fs.getByPathLocked(desc.ParentPath)
	if parent == nil || parent.typ != docfs.DirType {
		logger.Debug().Str("path", p).Str("parentPath", desc.ParentPath).Msg("No parent directory")
		return nil
	}
	if desc.ContentID == "" {
		desc.ContentID = uuid.NewString()
	}
	if _, ok := fs.byContentID[desc.ContentID]; ok {
		logger.Warn().Str("path", p).Str("contentID", desc.ContentID).Msg("ContentID already in use")
		return nil
	}

	node := NewNode(desc)
	node.placeholder = placeholder
	parent.addChildLocked(node)
	fs.byPath[p] = node
	fs.byContentID[desc.ContentID] = node
	logger.Debug().Str("path", p).Str("type", string(desc.Type)).Bool("placeholder", placeholder).Msg("Added node")
	return node
}

// ChangeFileInfo applies newMeta to the node at p. Returns false if there is
// no node at p or the change is rejected (see [FileSystem.ChangeDirInfo]).
func (fs *FileSystem) ChangeFileInfo(p string, newMeta docfs.NodeAttrs) bool {
	return fs.changeNode(fs.GetByPath(p), newMeta)
}

// ChangeDirInfo applies newMeta to the directory at p and re-paths every
// descendant. The whole cascade is applied before any listener runs.
//
// The change is rejected when the node is the root, the new path is taken,
// the new parent is not an existing directory or lies inside the node's own
// subtree, the new contentID is used by another node, the type tag would
// change or the new name is invalid. A new parentPath moves the node to that
// directory's child sequence.
func (fs *FileSystem) ChangeDirInfo(p string, newMeta docfs.NodeAttrs) bool {
	return fs.changeNode(fs.GetByPath(p), newMeta)
}

// ChangeFileInfoSync applies desc to the node with desc.ContentID
func (fs *FileSystem) ChangeFileInfoSync(desc docfs.NodeDescriptor) bool {
	return fs.changeNode(fs.GetByContentID(desc.ContentID), desc.Attrs())
}

// ChangeDirInfoSync applies desc to the directory with desc.ContentID and
// re-paths its subtree
func (fs *FileSystem) ChangeDirInfoSync(desc docfs.NodeDescriptor) bool {
	return fs.changeNode(fs.GetByContentID(desc.ContentID), desc.Attrs())
}

func (fs *FileSystem) changeNode(n *Node, attrs docfs.NodeAttrs) bool {
	if n == nil {
		return false
	}
	fs.mu.Lock()
	touched, ok := fs.changeNodeLocked(n, attrs)
	fs.mu.Unlock()

	for _, t := range touched {
		t.emit()
	}
	return ok
}

// changePlan is a validated change, ready to apply
type changePlan struct {
	parentPath string
	contentID  string
	newPath    string
	newParent  *Node
}

// changeNodeLocked validates and applies attrs to n, cascading the new path
// to descendants. Returns every node whose attributes changed, n first.
func (fs *FileSystem) changeNodeLocked(n *Node, attrs docfs.NodeAttrs) ([]*Node, bool) {
	plan, ok := fs.planChangeLocked(n, attrs, nil)
	if !ok {
		return nil, false
	}
	return fs.applyChangeLocked(n, attrs, plan), true
}

// planChangeLocked checks attrs against n without mutating anything.
// A node at the target path is a conflict unless it is n or vacating.
func (fs *FileSystem) planChangeLocked(n *Node, attrs docfs.NodeAttrs, vacating *Node) (changePlan, bool) {
	logger := util.GetLogger("FS.ChangeNode")

	if n == fs.root || n.tree != fs {
		return changePlan{}, false
	}

	name, parentPath, contentID := n.name, n.parentPath, n.contentID
	if attrs.Name != nil {
		name = *attrs.Name
	}
	if attrs.ParentPath != nil {
		parentPath = Clean(*attrs.ParentPath)
	}
	if attrs.ContentID != nil {
		contentID = *attrs.ContentID
	}
	if attrs.Type != nil && *attrs.Type != n.typ {
		logger.Warn().Str("path", n.path).Str("type", string(*attrs.Type)).Msg("Node type cannot change")
		return changePlan{}, false
	}
	if !ValidName(name) {
		logger.Warn().Str("path", n.path).Str("name", name).Msg("Invalid node name")
		return changePlan{}, false
	}
	if contentID != n.contentID {
		if other, ok := fs.byContentID[contentID]; contentID == "" || (ok && other != n) {
			logger.Warn().Str("path", n.path).Str("contentID", contentID).Msg("ContentID already in use")
			return changePlan{}, false
		}
	}

	newParent := n.parent
	if parentPath != n.parentPath {
		newParent = fs.getByPathLocked(parentPath)
		if newParent == nil || newParent.typ != docfs.DirType {
			logger.Debug().Str("path", n.path).Str("parentPath", parentPath).Msg("No parent directory")
			return changePlan{}, false
		}
		if isWithin(parentPath, n.path) {
			logger.Warn().Str("path", n.path).Str("parentPath", parentPath).Msg("Cannot move node into itself")
			return changePlan{}, false
		}
	}

	newPath := Join(parentPath, name)
	if other, ok := fs.byPath[newPath]; ok && other != n && other != vacating {
		logger.Warn().Str("path", n.path).Str("target", newPath).Msg("Target path already exists")
		return changePlan{}, false
	}
	return changePlan{
		parentPath: parentPath,
		contentID:  contentID,
		newPath:    newPath,
		newParent:  newParent,
	}, true
}

// applyChangeLocked applies a plan from [FileSystem.planChangeLocked]
func (fs *FileSystem) applyChangeLocked(n *Node, attrs docfs.NodeAttrs, plan changePlan) []*Node {
	logger := util.GetLogger("FS.ChangeNode")

	if plan.newParent != n.parent {
		n.parent.removeChildLocked(n)
		plan.newParent.addChildLocked(n)
	}
	oldPath := n.path
	delete(fs.byContentID, n.contentID)
	fs.unindexPathLocked(n)

	n.mu.Lock()
	n.applyLocked(attrs)
	n.parentPath = plan.parentPath
	n.path = plan.newPath
	n.mu.Unlock()

	fs.byPath[plan.newPath] = n
	fs.byContentID[plan.contentID] = n

	touched := []*Node{n}
	if plan.newPath != oldPath && n.typ == docfs.DirType {
		touched = fs.repathChildrenLocked(n, touched)
		logger.Debug().Str("from", oldPath).Str("to", plan.newPath).Int("descendants", len(touched)-1).Msg("Re-pathed subtree")
	}
	return touched
}

// unindexPathLocked drops n's path entry if it still points at n
func (fs *FileSystem) unindexPathLocked(n *Node) {
	if fs.byPath[n.path] == n {
		delete(fs.byPath, n.path)
	}
}

// repathChildrenLocked derives every descendant's path from dir's current
// path, appending each re-pathed node to touched
func (fs *FileSystem) repathChildrenLocked(dir *Node, touched []*Node) []*Node {
	for _, child := range dir.children {
		fs.unindexPathLocked(child)

		child.mu.Lock()
		child.parentPath = Clean(dir.path)
		child.path = Join(child.parentPath, child.name)
		child.mu.Unlock()

		fs.byPath[child.path] = child
		touched = append(touched, child)
		if child.typ == docfs.DirType {
			touched = fs.repathChildrenLocked(child, touched)
		}
	}
	return touched
}

// Delete removes the node at p and its whole subtree. Missing nodes are a
// no-op that returns false. The root cannot be deleted.
func (fs *FileSystem) Delete(p string) bool {
	logger := util.GetLogger("FS.Delete")

	p = Clean(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.byPath[p]
	if !ok {
		logger.Trace().Str("path", p).Msg("No node to delete")
		return false
	}
	n.parent.removeChildLocked(n)

	removed := fs.detachLocked(n, 0)
	logger.Debug().Str("path", p).Int("removed", removed).Msg("Deleted node")
	return true
}

// detachLocked drops n and its descendants from the indices
func (fs *FileSystem) detachLocked(n *Node, count int) int {
	fs.unindexPathLocked(n)
	if fs.byContentID[n.contentID] == n {
		delete(fs.byContentID, n.contentID)
	}
	n.mu.Lock()
	n.tree = nil
	n.mu.Unlock()
	count++
	for _, child := range n.children {
		count = fs.detachLocked(child, count)
	}
	return count
}

/* Sync insertion */

// SyncNode ingests a node descriptor whose ancestors may not have arrived yet.
// Missing ancestor directories are created as placeholders first. Then:
//   - a node already known by contentID is updated (renamed/moved) to desc;
//   - a placeholder directory at the target path adopts desc's identity;
//   - any other node at the target path is a conflict;
//   - otherwise a new file or directory is created.
//
// Returns false when desc could not be applied.
func (fs *FileSystem) SyncNode(desc docfs.NodeDescriptor) bool {
	logger := util.GetLogger("FS.SyncNode")

	if !desc.Type.Valid() {
		logger.Warn().Str("type", string(desc.Type)).Msg("Unknown node type")
		return false
	}
	if !ValidName(desc.Name) {
		logger.Warn().Str("name", desc.Name).Msg("Invalid node name")
		return false
	}
	desc.ParentPath = Clean(desc.ParentPath)
	if desc.ContentID == "" {
		desc.ContentID = uuid.NewString()
	}

	fs.mu.Lock()
	touched, ok := fs.syncNodeLocked(desc)
	fs.mu.Unlock()

	for _, t := range touched {
		t.emit()
	}
	if !ok {
		logger.Debug().Interface("node", desc).Msg("Failed to sync node")
	}
	return ok
}

// syncNodeLocked applies desc. Placeholders built for it are removed
// again when desc is rejected so a failed sync leaves the tree unchanged.
func (fs *FileSystem) syncNodeLocked(desc docfs.NodeDescriptor) ([]*Node, bool) {
	created, ok := fs.buildPathLocked(desc.ParentPath)
	if ok {
		var touched []*Node
		if touched, ok = fs.applySyncLocked(desc); ok {
			return touched, true
		}
	}
	if len(created) > 0 {
		// created is a chain; its first node holds the rest
		top := created[0]
		top.parent.removeChildLocked(top)
		fs.detachLocked(top, 0)
	}
	return nil, false
}

func (fs *FileSystem) applySyncLocked(desc docfs.NodeDescriptor) ([]*Node, bool) {
	target := Join(desc.ParentPath, desc.Name)
	occupant, occupied := fs.byPath[target]

	if existing, ok := fs.byContentID[desc.ContentID]; ok {
		// A directory renamed after its children arrived takes over the
		// placeholder holding them
		if occupied && occupant != existing && occupant.placeholder && existing.typ == docfs.DirType {
			return fs.absorbPlaceholderLocked(existing, occupant, desc.Attrs())
		}
		return fs.changeNodeLocked(existing, desc.Attrs())
	}

	if occupied {
		if occupant.placeholder && desc.Type == docfs.DirType {
			return fs.changeNodeLocked(occupant, docfs.NodeAttrs{ContentID: &desc.ContentID})
		}
		return nil, false
	}

	return nil, fs.makeNodeLocked(desc, false) != nil
}

// absorbPlaceholderLocked moves dir onto the path held by placeholder ph:
// ph's subtree is merged into dir, ph is dropped, then attrs are applied
func (fs *FileSystem) absorbPlaceholderLocked(dir, ph *Node, attrs docfs.NodeAttrs) ([]*Node, bool) {
	logger := util.GetLogger("FS.SyncNode")

	if isWithin(dir.path, ph.path) {
		logger.Warn().Str("path", dir.path).Str("target", ph.path).Msg("Cannot move node onto its own ancestor")
		return nil, false
	}
	plan, ok := fs.planChangeLocked(dir, attrs, ph)
	if !ok {
		return nil, false
	}
	if !mergeableLocked(dir, ph) {
		logger.Warn().Str("path", dir.path).Str("target", ph.path).Msg("Placeholder contents conflict")
		return nil, false
	}

	fs.mergeLocked(dir, ph)
	ph.parent.removeChildLocked(ph)
	fs.detachLocked(ph, 0)
	logger.Debug().Str("path", dir.path).Str("target", ph.path).Msg("Absorbed placeholder")

	return fs.applyChangeLocked(dir, attrs, plan), true
}

func childNamedLocked(dir *Node, name string) *Node {
	for _, c := range dir.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// mergeableLocked reports whether ph's children can move into dir. Same-name
// directories merge when one side is a placeholder; anything else collides.
func mergeableLocked(dir, ph *Node) bool {
	for _, c := range ph.children {
		x := childNamedLocked(dir, c.name)
		switch {
		case x == nil:
		case x.typ != docfs.DirType || c.typ != docfs.DirType:
			return false
		case c.placeholder:
			if !mergeableLocked(x, c) {
				return false
			}
		case x.placeholder:
			if !mergeableLocked(c, x) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// mergeLocked moves ph's children into dir. Paths are fixed up by the
// caller's cascade; dropped placeholders leave the indices here.
func (fs *FileSystem) mergeLocked(dir, ph *Node) {
	for _, c := range slices.Clone(ph.children) {
		x := childNamedLocked(dir, c.name)
		ph.removeChildLocked(c)
		switch {
		case x == nil:
			dir.addChildLocked(c)
		case c.placeholder:
			fs.mergeLocked(x, c)
			fs.detachLocked(c, 0)
		default: // x is the placeholder
			fs.mergeLocked(c, x)
			dir.removeChildLocked(x)
			fs.detachLocked(x, 0)
			dir.addChildLocked(c)
		}
	}
}

// buildPathLocked ensures every directory along p exists, creating
// placeholders for the missing ones. Returns the placeholders created,
// shallowest first, and false if a segment is a file.
func (fs *FileSystem) buildPathLocked(p string) ([]*Node, bool) {
	logger := util.GetLogger("FS.BuildPath")

	var created []*Node
	for _, seg := range Segments(p) {
		if n, ok := fs.byPath[seg]; ok {
			if n.typ != docfs.DirType {
				logger.Warn().Str("path", seg).Msg("Ancestor is a file")
				return created, false
			}
			continue
		}
		parentPath, name := Split(seg)
		placeholder := fs.makeNodeLocked(docfs.NodeDescriptor{
			Name:       name,
			Type:       docfs.DirType,
			ParentPath: parentPath,
			ContentID:  uuid.NewString(),
		}, true)
		if placeholder == nil {
			return created, false
		}
		created = append(created, placeholder)
	}
	return created, true
}

/* Enumeration */

// ListChildren returns the ordered children of the directory at p.
// Returns nil if p is missing or a file.
func (fs *FileSystem) ListChildren(p string) []*Node {
	n := fs.GetByPath(p)
	if n == nil {
		return nil
	}
	return n.Children()
}

// ListDescendants returns every node strictly below p in depth-first
// pre-order: a directory before its children, its children before its next
// sibling.
func (fs *FileSystem) ListDescendants(p string) []*Node {
	descendants := make([]*Node, 0)
	fs.Walk(p, func(n *Node) {
		descendants = append(descendants, n)
	})
	return descendants
}

// Walk calls fn for every node strictly below p in depth-first pre-order.
// The nodes are collected first and fn runs without the tree lock, so it may
// read or change the tree.
func (fs *FileSystem) Walk(p string, fn func(n *Node)) {
	var nodes []*Node
	fs.mu.RLock()
	if n := fs.getByPathLocked(Clean(p)); n != nil {
		walkLocked(n.children, func(c *Node) {
			nodes = append(nodes, c)
		})
	}
	fs.mu.RUnlock()

	for _, n := range nodes {
		fn(n)
	}
}

func walkLocked(nodes []*Node, fn func(n *Node)) {
	for _, n := range nodes {
		fn(n)
		if n.typ == docfs.DirType {
			walkLocked(n.children, fn)
		}
	}
}

// Snapshot sorts every directory's children by path ascending, recursively,
// and returns the root's children in that canonical order.
func (fs *FileSystem) Snapshot() []*Node {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sortRecursiveLocked(fs.root)
	return fs.root.Children()
}

func sortRecursiveLocked(dir *Node) {
	dir.mu.Lock()
	sort.SliceStable(dir.children, func(i, j int) bool {
		return dir.children[i].path < dir.children[j].path
	})
	dir.mu.Unlock()

	for _, child := range dir.children {
		if child.typ == docfs.DirType {
			sortRecursiveLocked(child)
		}
	}
}
