// Package category models the user's hierarchical category taxonomy and
// provides traversal and indexing over it.
package category

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"tributary/internal/common"
)

// Node is a single category in the taxonomy. A node without children is a
// leaf and the only valid direct assignment target for a transaction.
// Sibling order is preserved from the source document.
type Node struct {
	Name     string
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the rooted taxonomy. Root-level categories are ordered.
type Tree struct {
	Roots []*Node
}

// Parse decodes the loosely-typed JSON tree shape into a Tree. The accepted
// shapes per value are: null (leaf), {} (effective leaf), a nested object,
// or an array mixing bare names and nested objects. Key order is preserved,
// which keeps path collection and graph node ordering deterministic.
func Parse(data []byte) (*Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object at top level, got %v", common.ErrMalformedTree, tok)
	}

	roots, err := parseObject(dec)
	if err != nil {
		return nil, err
	}
	return &Tree{Roots: roots}, nil
}

// parseObject consumes object members up to and including the closing brace.
func parseObject(dec *json.Decoder) ([]*Node, error) {
	var nodes []*Node
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string key, got %v", common.ErrMalformedTree, tok)
		}
		node, err := parseValue(dec, name)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
	}
	return nodes, nil
}

func parseValue(dec *json.Decoder, name string) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
	}
	if tok == nil {
		// Explicit "no children" marker.
		return &Node{Name: name}, nil
	}
	if d, ok := tok.(json.Delim); ok {
		switch d {
		case '{':
			children, err := parseObject(dec)
			if err != nil {
				return nil, err
			}
			return &Node{Name: name, Children: children}, nil
		case '[':
			children, err := parseArray(dec)
			if err != nil {
				return nil, err
			}
			return &Node{Name: name, Children: children}, nil
		}
	}
	return nil, fmt.Errorf("%w: category %q has unsupported value %v", common.ErrMalformedTree, name, tok)
}

// parseArray consumes array items up to and including the closing bracket.
// Bare strings are leaves; nested objects contribute their keys as siblings.
func parseArray(dec *json.Decoder) ([]*Node, error) {
	var nodes []*Node
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
		}
		if s, ok := tok.(string); ok {
			nodes = append(nodes, &Node{Name: s})
			continue
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			siblings, err := parseObject(dec)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, siblings...)
			continue
		}
		return nil, fmt.Errorf("%w: unsupported list item %v", common.ErrMalformedTree, tok)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTree, err)
	}
	return nodes, nil
}

// MarshalJSON renders the tree back into the canonical JSON shape:
// leaves as null, internal nodes as nested objects. Array and empty-object
// shapes from the input are normalized on the way out.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNodes(&buf, t.Roots); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNodes(buf *bytes.Buffer, nodes []*Node) error {
	buf.WriteByte('{')
	for i, n := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(n.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if n.IsLeaf() {
			buf.WriteString("null")
		} else if err := writeNodes(buf, n.Children); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{Roots: cloneNodes(t.Roots)}
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = &Node{Name: n.Name, Children: cloneNodes(n.Children)}
	}
	return out
}

// find returns the first node with the given name in depth-first pre-order.
func find(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
		if found := find(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// AddCategory returns a copy of the tree with a new leaf appended under the
// named parent. An empty parent adds a new root-level category. The first
// node matching the parent name in depth-first order receives the child.
func AddCategory(t *Tree, parent, child string) (*Tree, error) {
	if child == "" {
		return nil, fmt.Errorf("%w: empty category name", common.ErrInvalidConfig)
	}
	out := t.Clone()
	if out == nil {
		out = &Tree{}
	}

	if parent == "" {
		for _, r := range out.Roots {
			if r.Name == child {
				return nil, fmt.Errorf("%w: %s", common.ErrCategoryExists, child)
			}
		}
		out.Roots = append(out.Roots, &Node{Name: child})
		return out, nil
	}

	target := find(out.Roots, parent)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrCategoryNotFound, parent)
	}
	for _, c := range target.Children {
		if c.Name == child {
			return nil, fmt.Errorf("%w: %s under %s", common.ErrCategoryExists, child, parent)
		}
	}
	target.Children = append(target.Children, &Node{Name: child})
	return out, nil
}

// RemoveCategory returns a copy of the tree with the first node matching the
// given name removed, along with its entire subtree.
func RemoveCategory(t *Tree, name string) (*Tree, error) {
	out := t.Clone()
	if out == nil || !removeFirst(&out.Roots, name) {
		return nil, fmt.Errorf("%w: %s", common.ErrCategoryNotFound, name)
	}
	return out, nil
}

func removeFirst(nodes *[]*Node, name string) bool {
	for i, n := range *nodes {
		if n.Name == name {
			*nodes = append((*nodes)[:i], (*nodes)[i+1:]...)
			return true
		}
		if removeFirst(&n.Children, name) {
			return true
		}
	}
	return false
}

// Leaves returns the sorted distinct names of all leaf categories. Only
// leaves are valid assignment targets for transactions.
func Leaves(t *Tree) []string {
	seen := make(map[string]struct{})
	if t != nil {
		collectLeaves(t.Roots, seen)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectLeaves(nodes []*Node, seen map[string]struct{}) {
	for _, n := range nodes {
		if n.IsLeaf() {
			seen[n.Name] = struct{}{}
		} else {
			collectLeaves(n.Children, seen)
		}
	}
}
