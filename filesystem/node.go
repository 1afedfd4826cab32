package filesystem

import (
	"sync"
	"sync/atomic"

	"github.com/brettbedarf/docfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// ListenerID identifies a change listener registered with [Node.On]
type ListenerID uint64

// Node is a single file or directory entry. Files and directories share this
// struct and are told apart by their type tag; children are only used by
// directories.
type Node struct {
	name        string         // Last path segment. Protected by mu
	typ         docfs.NodeType // Protected by mu
	contentID   string         // Stable identity across renames/moves. Protected by mu
	parentPath  string         // Protected by mu
	path        string         // Derived from parentPath and name. Protected by mu
	placeholder bool           // Directory materialized by sync before its descriptor arrived. Protected by mu
	children    []*Node        // Ordered children; directories only. Protected by mu
	parent      *Node          // Protected by mu
	tree        *FileSystem    // Owning tree; nil once detached. Protected by mu
	mu          sync.RWMutex   // Protects the fields above

	listeners    *xsync.Map[ListenerID, func(*Node)]
	lastListener atomic.Uint64
}

// NewNode creates a detached Node from desc. The tree attaches it when
// linking it as a child.
func NewNode(desc docfs.NodeDescriptor) *Node {
	typ := desc.Type
	if !typ.Valid() {
		typ = docfs.FileType
	}
	n := &Node{
		name:       desc.Name,
		typ:        typ,
		contentID:  desc.ContentID,
		parentPath: Clean(desc.ParentPath),
		listeners:  xsync.NewMap[ListenerID, func(*Node)](),
	}
	n.path = Join(n.parentPath, n.name)
	if typ == docfs.DirType {
		n.children = make([]*Node, 0)
	}
	return n
}

// newRoot creates the tree's root directory
func newRoot() *Node {
	root := NewNode(docfs.NodeDescriptor{
		Name:      RootName,
		Type:      docfs.DirType,
		ContentID: RootContentID,
	})
	root.path = RootName
	return root
}

// Name returns the node's name (last path segment)
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// Type returns the node's type tag
func (n *Node) Type() docfs.NodeType {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.typ
}

func (n *Node) IsDir() bool {
	return n.Type() == docfs.DirType
}

// ContentID returns the node's stable identity
func (n *Node) ContentID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.contentID
}

func (n *Node) ParentPath() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parentPath
}

// Path returns the path of the node relative from root. The root returns "@".
func (n *Node) Path() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path
}

// IsPlaceholder returns true for a directory created by sync insertion
// whose own descriptor has not arrived yet
func (n *Node) IsPlaceholder() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.placeholder
}

// Children returns a copy of the ordered child sequence; nil for files
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.childrenLocked()
}

func (n *Node) childrenLocked() []*Node {
	if n.children == nil {
		return nil
	}
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

// Descriptor returns the node's plain attribute record
func (n *Node) Descriptor() docfs.NodeDescriptor {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return docfs.NodeDescriptor{
		Name:       n.name,
		Type:       n.typ,
		ContentID:  n.contentID,
		ParentPath: n.parentPath,
	}
}

// Attached returns true while the node is reachable from a tree
func (n *Node) Attached() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tree != nil
}

// On registers fn to be called with the node after every applied change.
// Callbacks run synchronously on the goroutine that made the change.
func (n *Node) On(fn func(*Node)) ListenerID {
	id := ListenerID(n.lastListener.Add(1))
	n.listeners.Store(id, fn)
	return id
}

// Off removes a listener. Returns false if it was not registered.
func (n *Node) Off(id ListenerID) bool {
	_, ok := n.listeners.LoadAndDelete(id)
	return ok
}

// ListenerCount returns the number of registered listeners
func (n *Node) ListenerCount() int {
	return n.listeners.Size()
}

func (n *Node) emit() {
	n.listeners.Range(func(_ ListenerID, fn func(*Node)) bool {
		fn(n)
		return true
	})
}

// Change applies any subset of name, type, parentPath and contentID, recomputes
// the path and notifies listeners.
//
// A node attached to a tree is changed through the tree so that renames and
// moves re-path the whole subtree and are rejected when they would collide
// (see [FileSystem.ChangeDirInfo]). A detached node applies attrs as-is.
func (n *Node) Change(attrs docfs.NodeAttrs) bool {
	n.mu.RLock()
	fs := n.tree
	n.mu.RUnlock()

	if fs != nil {
		return fs.changeNode(n, attrs)
	}

	n.mu.Lock()
	n.applyLocked(attrs)
	n.mu.Unlock()
	n.emit()
	return true
}

// applyLocked sets attrs and recomputes path. Caller must hold n.mu.Lock().
func (n *Node) applyLocked(attrs docfs.NodeAttrs) {
	if attrs.Name != nil {
		n.name = *attrs.Name
	}
	if attrs.Type != nil && attrs.Type.Valid() {
		n.typ = *attrs.Type
		if n.typ == docfs.DirType && n.children == nil {
			n.children = make([]*Node, 0)
		}
	}
	if attrs.ParentPath != nil {
		n.parentPath = Clean(*attrs.ParentPath)
	}
	if attrs.ContentID != nil {
		n.contentID = *attrs.ContentID
		n.placeholder = false
	}
	n.path = Join(n.parentPath, n.name)
}

// addChildLocked appends child and links it back to n.
// Caller must hold the tree lock.
func (n *Node) addChildLocked(child *Node) {
	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()

	child.mu.Lock()
	child.parent = n
	child.tree = n.tree
	child.mu.Unlock()
}

// removeChildLocked unlinks child from n's child sequence.
// Caller must hold the tree lock.
func (n *Node) removeChildLocked(child *Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.mu.Lock()
			child.parent = nil
			child.mu.Unlock()
			return true
		}
	}
	return false
}
