/*
	Copyright 2023 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package runetrie

import (
	"slices"
	"sort"
)

// edge links a node to one of its children.
type edge struct {
	r    rune
	node *node
}

// node is a single code point position in the tree.  A node exclusively owns
// its children; nothing points back up the tree.
type node struct {
	// True iff the path from the root to this node spells a stored string.
	terminal bool
	// The node's children, kept sorted by code point so that lookups can
	// binary search and traversals visit siblings in a stable order.
	children []edge
}

// find returns the index of r among the receiver's children, and whether it
// is present.  If it is absent, the returned index is where r would be
// inserted.
func (n *node) find(r rune) (int, bool) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].r >= r
	})
	return i, i < len(n.children) && n.children[i].r == r
}

// child returns the receiver's child for r, or nil.
func (n *node) child(r rune) *node {
	if i, ok := n.find(r); ok {
		return n.children[i].node
	}
	return nil
}

// childOrAdd returns the receiver's child for r, creating an empty one if it
// doesn't exist yet.  created is true iff a new node was allocated.
func (n *node) childOrAdd(r rune) (child *node, created bool) {
	i, ok := n.find(r)
	if ok {
		return n.children[i].node, false
	}
	child = &node{}
	n.children = slices.Insert(n.children, i, edge{r: r, node: child})
	return child, true
}

// removeAt drops the receiver's i'th child, and with it that child's subtree.
func (n *node) removeAt(i int) {
	n.children = slices.Delete(n.children, i, i+1)
	if len(n.children) == 0 {
		n.children = nil
	}
}

// dead reports whether the receiver carries no information: it ends no
// string and leads to none.
func (n *node) dead() bool {
	return !n.terminal && len(n.children) == 0
}
