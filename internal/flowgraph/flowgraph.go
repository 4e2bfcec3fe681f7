// Package flowgraph derives a Sankey-style directed flow graph from an
// aggregation result and the category tree it was computed against.
package flowgraph

import (
	"tributary/internal/aggregate"
	"tributary/internal/category"
)

// RootName is the synthetic node every top-level flow attaches to. Its value
// is the aggregation's grand total rather than a category bucket.
const RootName = "Total Sum"

// Node is a single box in the flow diagram.
type Node struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Link is a directed flow between two nodes, referencing them by index into
// Graph.Nodes.
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
}

// Graph is the filtered node/edge structure consumed by the front-end
// renderer. It is rebuilt from scratch on every call and never mutated.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

type builder struct {
	result map[string]int64
	meta   aggregate.Metadata
	index  map[string]int
	nodes  []Node
	links  []Link
}

// add registers a node on first encounter and returns its index. A node's
// value comes from the aggregation result (absent means zero); the root's
// value is the grand total from metadata.
func (b *builder) add(name string) int {
	if idx, ok := b.index[name]; ok {
		return idx
	}
	var value float64
	if name == RootName {
		value = b.meta.TotalSum
	} else {
		value = float64(b.result[name])
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Name: name, Value: value})
	b.index[name] = idx
	return idx
}

// link connects a node to its parent with direction chosen by sign: positive
// values flow parent to node, negative values flow back toward the parent
// with the magnitude. Zero produces no edge.
func (b *builder) link(parent, name string) {
	value := b.result[name]
	switch {
	case value > 0:
		b.links = append(b.links, Link{
			Source: b.index[parent],
			Target: b.index[name],
			Value:  float64(value),
		})
	case value < 0:
		b.links = append(b.links, Link{
			Source: b.index[name],
			Target: b.index[parent],
			Value:  float64(-value),
		})
	}
}

func (b *builder) walk(n *category.Node, parent string) {
	b.add(n.Name)
	b.link(parent, n.Name)
	for _, child := range n.Children {
		b.walk(child, n.Name)
	}
}

// Build constructs the flow graph for an aggregation result. Nodes register
// in first-encounter order: root first, then the tree in depth-first
// pre-order, then the synthetic buckets. A final filter pass drops
// zero-valued nodes, discards links touching a dropped node, and remaps the
// survivors to dense indices. Ordering depends only on traversal order, not
// on map iteration.
func Build(result map[string]int64, meta aggregate.Metadata, tree *category.Tree) Graph {
	b := &builder{
		result: result,
		meta:   meta,
		index:  make(map[string]int),
	}

	b.add(RootName)

	if tree != nil {
		for _, root := range tree.Roots {
			b.walk(root, RootName)
		}
	}

	for _, bucket := range []string{aggregate.BucketNoCategory, aggregate.BucketInvalid} {
		if b.result[bucket] == 0 {
			continue
		}
		b.add(bucket)
		b.link(RootName, bucket)
	}

	return b.filtered()
}

// filtered removes zero-valued nodes and any link whose endpoint did not
// survive, then rewrites link endpoints against the dense index.
func (b *builder) filtered() Graph {
	remap := make(map[int]int, len(b.nodes))
	nodes := make([]Node, 0, len(b.nodes))
	for oldIdx, n := range b.nodes {
		if n.Value == 0 {
			continue
		}
		remap[oldIdx] = len(nodes)
		nodes = append(nodes, n)
	}

	links := make([]Link, 0, len(b.links))
	for _, l := range b.links {
		src, okSrc := remap[l.Source]
		tgt, okTgt := remap[l.Target]
		if !okSrc || !okTgt {
			continue
		}
		links = append(links, Link{Source: src, Target: tgt, Value: l.Value})
	}

	return Graph{Nodes: nodes, Links: links}
}
