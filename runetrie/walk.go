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
	"errors"
	"iter"
	"unicode/utf8"
)

// VisitFn is invoked once per stored string found by a walk.  s is the
// complete stored string and length is its length in code points.  Any
// context the visitor needs should be captured by the closure.
//
// Returning ErrStopWalk ends the walk early without error.  Returning any
// other non-nil error ends the walk, and the walk returns that error.
type VisitFn func(s string, length int) error

// ErrStopWalk may be returned by a VisitFn to end a walk early.  It is never
// returned by a walk.
var ErrStopWalk = errors.New("stop walk")

func stopped(err error) error {
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

// WalkPrefixStrings invokes fn for every stored string related to prefix:
// first each stored string that prefix starts with (prefix itself included),
// shortest first, and then each stored string that strictly extends prefix,
// in depth-first order with siblings in ascending code point order.  Each
// stored string is visited at most once.  If nothing related to prefix is
// stored, fn is never invoked.  A stored empty string is a prefix of every
// string, so it is always reported, even when prefix's path leaves the tree.
func (t *Trie) WalkPrefixStrings(prefix string, fn VisitFn) error {
	if !utf8.ValidString(prefix) {
		return nil
	}
	key := t.key(prefix)
	n, err := t.walkPath(key, fn)
	if err == nil && n != nil {
		err = walkSubtree(n, []rune(key), false, fn)
	}
	return stopped(err)
}

// WalkPrefixesOf invokes fn, shortest first, for every stored string that s
// starts with, s itself included.
func (t *Trie) WalkPrefixesOf(s string, fn VisitFn) error {
	if !utf8.ValidString(s) {
		return nil
	}
	_, err := t.walkPath(t.key(s), fn)
	return stopped(err)
}

// WalkCompletions invokes fn for every stored string that starts with prefix,
// prefix itself included, in depth-first order with siblings in ascending
// code point order.
func (t *Trie) WalkCompletions(prefix string, fn VisitFn) error {
	if !utf8.ValidString(prefix) {
		return nil
	}
	key := t.key(prefix)
	n := t.lookup(key)
	if n == nil {
		return nil
	}
	return stopped(walkSubtree(n, []rune(key), true, fn))
}

// AllPrefixStrings returns, in WalkPrefixStrings order, every stored string
// related to prefix.  The returned slice is empty, not nil, if there are none.
func (t *Trie) AllPrefixStrings(prefix string) []string {
	ret := []string{}
	_ = t.WalkPrefixStrings(prefix, func(s string, _ int) error {
		ret = append(ret, s)
		return nil
	})
	return ret
}

// AllCompletions returns, in WalkCompletions order, every stored string
// starting with prefix.  The returned slice is empty, not nil, if there are
// none.
func (t *Trie) AllCompletions(prefix string) []string {
	ret := []string{}
	_ = t.WalkCompletions(prefix, func(s string, _ int) error {
		ret = append(ret, s)
		return nil
	})
	return ret
}

// PrefixStrings returns the strings WalkPrefixStrings would visit, as a
// sequence.  Each iteration walks the receiver anew.
func (t *Trie) PrefixStrings(prefix string) iter.Seq[string] {
	return seq(prefix, t.WalkPrefixStrings)
}

// Completions returns the strings WalkCompletions would visit, as a
// sequence.  Each iteration walks the receiver anew.
func (t *Trie) Completions(prefix string) iter.Seq[string] {
	return seq(prefix, t.WalkCompletions)
}

func seq(prefix string, walk func(string, VisitFn) error) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = walk(prefix, func(s string, _ int) error {
			if !yield(s) {
				return ErrStopWalk
			}
			return nil
		})
	}
}

// walkPath follows the path spelled by key, invoking fn for each terminal
// node along it (the root included), and returns the node at the end of the
// path, or nil if the path leaves the tree.
func (t *Trie) walkPath(key string, fn VisitFn) (*node, error) {
	n := &t.root
	if n.terminal {
		if err := fn("", 0); err != nil {
			return nil, err
		}
	}
	length := 0
	for i, r := range key {
		if n = n.child(r); n == nil {
			return nil, nil
		}
		length++
		if n.terminal {
			if err := fn(key[:i+utf8.RuneLen(r)], length); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// frame is a position in an in-progress depth-first traversal: a node, and
// the index of the next of its children to descend into.
type frame struct {
	n    *node
	next int
}

// walkSubtree performs a pre-order traversal of the subtree rooted at n,
// invoking fn for each terminal node.  prefix spells the path to n.  n itself
// is only reported if includeSelf is true.  The traversal uses an explicit
// stack, so its depth is not bounded by the goroutine stack.
func walkSubtree(n *node, prefix []rune, includeSelf bool, fn VisitFn) error {
	buf := prefix
	if includeSelf && n.terminal {
		if err := fn(string(buf), len(buf)); err != nil {
			return err
		}
	}
	stack := []frame{{n: n}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.n.children) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				buf = buf[:len(buf)-1]
			}
			continue
		}
		e := top.n.children[top.next]
		top.next++
		buf = append(buf, e.r)
		if e.node.terminal {
			if err := fn(string(buf), len(buf)); err != nil {
				return err
			}
		}
		stack = append(stack, frame{n: e.node})
	}
	return nil
}
