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
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Dump writes the receiver's structure to w, one node per line.  The root is
// written as '^', and every other node as its code point, indented one space
// per level below the root.  Siblings appear in ascending code point order.
// Terminal nodes are followed by '$'.  Code points that are not graphic, and
// spaces, are written in U+ notation.
func (t *Trie) Dump(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

// String returns the receiver's Dump.
func (t *Trie) String() string {
	var sb strings.Builder
	writeNode(&sb, 0, "^", &t.root)
	stack := []frame{{n: &t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.n.children) {
			stack = stack[:len(stack)-1]
			continue
		}
		e := top.n.children[top.next]
		top.next++
		writeNode(&sb, len(stack), label(e.r), e.node)
		stack = append(stack, frame{n: e.node})
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, depth int, label string, n *node) {
	sb.WriteString(strings.Repeat(" ", depth))
	sb.WriteString(label)
	if n.terminal {
		sb.WriteByte('$')
	}
	sb.WriteByte('\n')
}

func label(r rune) string {
	if unicode.IsGraphic(r) && !unicode.IsSpace(r) {
		return string(r)
	}
	return fmt.Sprintf("%U", r)
}
