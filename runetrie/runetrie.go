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

// Package runetrie provides a prefix tree over Unicode code points.
//
// # Structure
//
// A Trie is a tree of nodes.  Each edge is labelled with one code point, so
// the path from the root to any node spells a string; a node is marked
// terminal when that string has been stored.  The root represents the empty
// prefix.  Strings that share a prefix share the nodes spelling it.
//
// The tree is kept minimal: every node either ends a stored string or leads
// to one.  Delete prunes the nodes that a removed string leaves behind, so a
// Trie that has had a string added and then deleted is structurally identical
// to one that never saw it.
//
// # Queries
//
// Find reports exact membership.  WalkPrefixStrings and AllPrefixStrings
// enumerate, for a given prefix, the stored strings lying along that prefix's
// path (the stored prefixes of it, shortest first) followed by the stored
// strings extending it.  WalkPrefixesOf and WalkCompletions expose those two
// halves separately.  Siblings are always visited in ascending code point
// order, so enumeration order is a pure function of the Trie's contents.
//
// # Input
//
// Keys are Go strings, which must be valid UTF-8; Add and AddRunes reject
// malformed input with ErrInvalidInput before changing anything.  Read-only
// operations treat malformed input as absent.  The empty string is a legal
// key unless the Trie was built with DisallowEmpty.  A Trie built with
// Normalize maps every key to a Unicode normalization form first, so that
// canonically equivalent spellings share a single entry.
//
// # Concurrency
//
// A Trie has no internal synchronization.  Mutations (Add, AddRunes, Delete,
// Clear, MergeFrom) require exclusive access; callers sharing a Trie across
// goroutines must lock around it.  A visitor must not mutate the Trie it is
// walking.
package runetrie

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidInput is returned, wrapped, when a key is not valid code point
// data, or is the empty string on a Trie built with DisallowEmpty.
var ErrInvalidInput = errors.New("invalid input")

// Option configures a Trie at construction.
type Option func(t *Trie)

// DisallowEmpty makes Add and AddRunes reject the empty string.  By default
// the empty string may be stored, marking the root terminal.
func DisallowEmpty() Option {
	return func(t *Trie) {
		t.disallowEmpty = true
	}
}

// Normalize makes the Trie convert every key to the specified normalization
// form before use.  Strings reported by walks are in that form.
func Normalize(form norm.Form) Option {
	return func(t *Trie) {
		t.normalize = true
		t.form = form
	}
}

// Trie is a prefix tree of Unicode strings.  The zero value is an empty Trie
// ready for use, accepting the empty string and not normalizing keys.
type Trie struct {
	root node
	// The number of stored strings.
	count int
	// The number of nodes below the root.
	nodes int

	disallowEmpty bool
	normalize     bool
	form          norm.Form
}

// New creates and returns a new, empty Trie.
func New(opts ...Option) *Trie {
	ret := &Trie{}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Len returns the number of strings stored in the receiver.
func (t *Trie) Len() int {
	return t.count
}

// NodeCount returns the number of nodes in the receiver, not counting the
// root.  For a given set of stored strings this is always the same, no matter
// what was added and deleted to get there.
func (t *Trie) NodeCount() int {
	return t.nodes
}

// key returns s as it is keyed in the receiver.  s must be valid UTF-8.
func (t *Trie) key(s string) string {
	if t.normalize {
		return t.form.String(s)
	}
	return s
}

// Add stores s in the receiver.  Adding a string that is already stored has
// no effect.  If s is not valid UTF-8, or is empty and the receiver disallows
// that, Add returns an error wrapping ErrInvalidInput and the receiver is
// unchanged.
func (t *Trie) Add(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidInput, s)
	}
	if s == "" && t.disallowEmpty {
		return fmt.Errorf("%w: empty string", ErrInvalidInput)
	}
	t.insert(t.key(s))
	return nil
}

// AddRunes behaves like Add, storing the string spelled by rs.  Every rune
// must be a Unicode scalar value; surrogate halves and values beyond
// U+10FFFF are rejected with ErrInvalidInput.
func (t *Trie) AddRunes(rs []rune) error {
	for i, r := range rs {
		if !utf8.ValidRune(r) {
			return fmt.Errorf("%w: rune %d (%#x) is not a Unicode scalar value", ErrInvalidInput, i, r)
		}
	}
	return t.Add(string(rs))
}

// insert walks key from the root, creating missing nodes, and marks the final
// node terminal.  key must be valid.
func (t *Trie) insert(key string) {
	n := &t.root
	for _, r := range key {
		var created bool
		n, created = n.childOrAdd(r)
		if created {
			t.nodes++
		}
	}
	if !n.terminal {
		n.terminal = true
		t.count++
	}
}

// lookup returns the node at the end of the path spelled by key, or nil if
// that path leaves the tree.
func (t *Trie) lookup(key string) *node {
	n := &t.root
	for _, r := range key {
		if n = n.child(r); n == nil {
			return nil
		}
	}
	return n
}

// Find returns true iff s is stored in the receiver.
func (t *Trie) Find(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	n := t.lookup(t.key(s))
	return n != nil && n.terminal
}

// step records one descent during Delete: the parent node and the index,
// within its children, of the child descended into.
type step struct {
	parent *node
	index  int
}

// Delete removes s from the receiver, pruning every node that no longer leads
// to a stored string.  It returns true iff s was stored.  Deleting a string
// that isn't stored leaves the receiver unchanged.
func (t *Trie) Delete(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	key := t.key(s)
	path := make([]step, 0, utf8.RuneCountInString(key))
	n := &t.root
	for _, r := range key {
		i, ok := n.find(r)
		if !ok {
			return false
		}
		path = append(path, step{parent: n, index: i})
		n = n.children[i].node
	}
	if !n.terminal {
		return false
	}
	n.terminal = false
	t.count--
	// Rewind toward the root, detaching nodes that were devoted only to key.
	// The recorded indices are still valid: each parent is only modified
	// after all of its descendants on the path have been handled.
	for i := len(path) - 1; i >= 0 && n.dead(); i-- {
		parent := path[i].parent
		parent.removeAt(path[i].index)
		t.nodes--
		n = parent
	}
	return true
}

// Clear removes every string from the receiver, keeping its options.
func (t *Trie) Clear() {
	t.root = node{}
	t.count = 0
	t.nodes = 0
}

// MergeFrom adds every string stored in other to the receiver.  Strings are
// merged as other stores them, without applying the receiver's options.
// other is not modified.
func (t *Trie) MergeFrom(other *Trie) {
	if other == nil || other == t {
		return
	}
	type pair struct {
		dst, src *node
	}
	stack := []pair{{dst: &t.root, src: &other.root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.src.terminal && !p.dst.terminal {
			p.dst.terminal = true
			t.count++
		}
		for _, e := range p.src.children {
			child, created := p.dst.childOrAdd(e.r)
			if created {
				t.nodes++
			}
			stack = append(stack, pair{dst: child, src: e.node})
		}
	}
}
