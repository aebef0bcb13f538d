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

// Package dictionary reads word lists: plain text files with one word per
// line.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineLength bounds the length of a single word.
const maxLineLength = 1 << 20

// Read returns the words in r, one per line, in order.  A leading UTF-8 or
// UTF-16 byte order mark selects the encoding; without one, r is read as
// UTF-8.  Trailing carriage returns are stripped and blank lines skipped.
// Words are not otherwise validated.
func Read(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	var words []string
	for scanner.Scan() {
		word := strings.TrimSuffix(scanner.Text(), "\r")
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ReadFile returns the words in the named file, as Read does.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return words, nil
}

// ReadFiles returns the words in every named file, in order.
func ReadFiles(paths ...string) ([]string, error) {
	var words []string
	for _, path := range paths {
		w, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		words = append(words, w...)
	}
	return words, nil
}
