package category

import "slices"

// CollectPaths walks the tree depth-first, pre-order, and returns the full
// ancestor path (root down to and including the terminal) for every leaf.
// An internal node with no surviving children counts as a terminal; non-empty
// internal nodes only appear as ancestors inside their leaves' paths.
func CollectPaths(t *Tree) [][]string {
	var paths [][]string
	if t != nil {
		collectPaths(t.Roots, nil, &paths)
	}
	return paths
}

func collectPaths(nodes []*Node, prefix []string, paths *[][]string) {
	for _, n := range nodes {
		current := make([]string, 0, len(prefix)+1)
		current = append(current, prefix...)
		current = append(current, n.Name)
		if n.IsLeaf() {
			*paths = append(*paths, current)
			continue
		}
		collectPaths(n.Children, current, paths)
	}
}

// Index resolves a transaction's category string to its full ancestor path.
// It is rebuilt per aggregation call since the tree may have been edited
// between calls; construction is deterministic for a given tree.
type Index struct {
	byLeaf map[string][]string
	paths  [][]string
}

// NewIndex builds the leaf-to-path index from a tree. If the same leaf name
// terminates two different paths, the later path in traversal order wins.
// This is a known ambiguity of duplicate leaf names, kept as-is rather than
// rejected, since sibling names are only unique per parent.
func NewIndex(t *Tree) *Index {
	paths := CollectPaths(t)
	byLeaf := make(map[string][]string, len(paths))
	for _, p := range paths {
		byLeaf[p[len(p)-1]] = p
	}
	return &Index{byLeaf: byLeaf, paths: paths}
}

// Paths returns all collected paths in traversal order.
func (idx *Index) Paths() [][]string {
	return idx.paths
}

// Resolve maps a category name to its full ancestor path. Exact leaf matches
// win; otherwise the first path (traversal order) containing the name as an
// element is used, which lets transactions categorized at a parent level
// roll up through that parent's subtree path.
func (idx *Index) Resolve(name string) ([]string, bool) {
	if path, ok := idx.byLeaf[name]; ok {
		return path, true
	}
	for _, p := range idx.paths {
		if slices.Contains(p, name) {
			return p, true
		}
	}
	return nil, false
}
