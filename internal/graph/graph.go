// Package graph turns the objects accumulator into a force-directed graph
// in the node/link shape D3 expects.
package graph

import (
	"strings"

	"github.com/jcdickinson/astdocs/internal/registry"
)

type Node struct {
	ID    string `json:"id"`
	Group int    `json:"group"`
}

type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

type builder struct {
	objs  *registry.Objects
	graph Graph
	nodes map[string]bool
	links map[Link]bool
}

// Build links every object to its module-local name and every dotted path
// to its parent. Nodes are grouped by the 1-based index of the module they
// were first seen in, or 0 when they live outside the accumulated modules.
func Build(objs *registry.Objects) *Graph {
	b := &builder{
		objs:  objs,
		graph: Graph{Nodes: []Node{}, Links: []Link{}},
		nodes: make(map[string]bool),
		links: make(map[Link]bool),
	}

	for i, module := range objs.Modules() {
		group := i + 1
		b.node(module, group)

		m, _ := objs.Module(module)
		for _, kind := range registry.Kinds {
			for pair := m.Table(kind).Oldest(); pair != nil; pair = pair.Next() {
				local := registry.Join(module, pair.Key)
				abs := pair.Value

				b.node(abs, group)
				b.node(local, group)
				b.link(abs, local)

				if registry.IsDirectChild(local, module) {
					b.link(module, local)
				}

				parts := strings.Split(abs, ".")
				for j := 1; j < len(parts); j++ {
					parent := strings.Join(parts[:j], ".")
					child := strings.Join(parts[:j+1], ".")
					b.node(parent, group)
					b.node(child, group)
					b.link(parent, child)
				}
			}
		}
	}
	return &b.graph
}

func (b *builder) node(id string, group int) {
	if b.nodes[id] {
		return
	}
	b.nodes[id] = true
	if !b.objs.IsLocal(id) {
		group = 0
	}
	b.graph.Nodes = append(b.graph.Nodes, Node{ID: id, Group: group})
}

func (b *builder) link(source, target string) {
	l := Link{Source: source, Target: target}
	if source == target || b.links[l] {
		return
	}
	b.links[l] = true
	b.graph.Links = append(b.graph.Links, l)
}
