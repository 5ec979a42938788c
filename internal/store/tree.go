package store

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
)

// Separator splits entry names into tree levels.
const Separator = "/"

// Node is one level of the entry tree.
type Node struct {
	Label    string  `json:"label"`
	Children []*Node `json:"children,omitempty"`
}

// Child returns the direct child with label.
func (n *Node) Child(label string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Label == label {
			return c, true
		}
	}
	return nil, false
}

// BuildTree groups names by their path segments under a root labeled
// root. Empty segments are skipped and siblings are sorted.
func BuildTree(root string, names []string) *Node {
	top := &Node{Label: root}
	for _, name := range names {
		n := top
		for _, seg := range strings.Split(name, Separator) {
			if seg == "" {
				continue
			}
			child, ok := n.Child(seg)
			if !ok {
				child = &Node{Label: seg}
				n.Children = append(n.Children, child)
			}
			n = child
		}
	}
	top.sort()
	return top
}

func (n *Node) sort() {
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Label < n.Children[j].Label })
	for _, c := range n.Children {
		c.sort()
	}
}

// Render draws the tree top-down with box-drawing branches.
func (n *Node) Render() string {
	return n.lipgloss().String()
}

func (n *Node) lipgloss() *tree.Tree {
	t := tree.Root(n.Label)
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(c.Label)
			continue
		}
		t.Child(c.lipgloss())
	}
	return t
}

// Tree builds the entry tree rooted at the archive path.
func (s *Store) Tree() (*Node, error) {
	names, err := s.container.Names()
	if err != nil {
		return nil, err
	}
	return BuildTree(s.path, names), nil
}

// RenderTree renders Tree as text.
func (s *Store) RenderTree() (string, error) {
	t, err := s.Tree()
	if err != nil {
		return "", err
	}
	return t.Render(), nil
}
