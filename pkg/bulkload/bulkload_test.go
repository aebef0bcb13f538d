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

package bulkload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-runetrie/runetrie"
	"golang.org/x/text/unicode/norm"
)

// words returns n distinct words, many sharing prefixes.
func words(n int) []string {
	ret := make([]string, n)
	for i := range ret {
		ret[i] = fmt.Sprintf("w%x-%d", i%17, i)
	}
	return ret
}

func serial(t *testing.T, words []string, opts ...runetrie.Option) *runetrie.Trie {
	t.Helper()
	ret := runetrie.New(opts...)
	for _, word := range words {
		if err := ret.Add(word); err != nil {
			t.Fatalf("Add(%q) = %v", word, err)
		}
	}
	return ret
}

type loadFn func(ctx context.Context, words []string, opts ...Option) (*runetrie.Trie, error)

var loadFns = []struct {
	description string
	load        loadFn
}{{
	description: "Load()",
	load:        Load,
}, {
	description: "Measure()",
	load: func(ctx context.Context, words []string, opts ...Option) (*runetrie.Trie, error) {
		trie, m, err := Measure(ctx, words, opts...)
		if err != nil {
			return nil, err
		}
		var merged uint
		for _, sm := range m.StageMetrics {
			if sm.StageName == "global merge" {
				merged += sm.Items
			}
		}
		if got := m.StageMetrics[0].Items; got != merged {
			return nil, fmt.Errorf("%d batches produced, but %d merged", got, merged)
		}
		return trie, nil
	},
}, {
	description: "SequentialLoad()",
	load:        SequentialLoad,
}}

func TestLoad(t *testing.T) {
	for _, lf := range loadFns {
		for _, test := range []struct {
			description string
			words       []string
			opts        []Option
		}{{
			description: "no words",
		}, {
			description: "one partial batch",
			words:       []string{"cat", "car", "dog"},
			opts:        []Option{BatchSize(10)},
		}, {
			description: "many batches",
			words:       words(1000),
			opts:        []Option{BatchSize(7), Concurrency(3), InputBufferSize(2)},
		}, {
			description: "duplicates across batches",
			words:       append(words(50), words(50)...),
			opts:        []Option{BatchSize(8), Concurrency(2)},
		}, {
			description: "default options",
			words:       words(12000),
		}} {
			t.Run(lf.description+" "+test.description, func(t *testing.T) {
				got, err := lf.load(context.Background(), test.words, test.opts...)
				if err != nil {
					t.Fatalf("load yielded %v, wanted nil", err)
				}
				want := serial(t, test.words)
				if got.Len() != want.Len() || got.NodeCount() != want.NodeCount() {
					t.Errorf("Len(), NodeCount() = %d, %d, wanted %d, %d", got.Len(), got.NodeCount(), want.Len(), want.NodeCount())
				}
				if diff := cmp.Diff(want.String(), got.String()); diff != "" {
					t.Errorf("loaded trie differs from serially built trie, diff (-want +got) %s", diff)
				}
			})
		}
	}
}

func TestLoadTrieOptions(t *testing.T) {
	for _, lf := range loadFns {
		t.Run(lf.description, func(t *testing.T) {
			got, err := lf.load(context.Background(),
				[]string{"cafe\u0301", "caf\u00e9", "cab"},
				BatchSize(1), TrieOptions(runetrie.Normalize(norm.NFC)))
			if err != nil {
				t.Fatalf("load yielded %v, wanted nil", err)
			}
			if diff := cmp.Diff([]string{"cab", "caf\u00e9"}, got.AllCompletions("")); diff != "" {
				t.Errorf("loaded strings diff (-want +got) %s", diff)
			}
			if !got.Find("cafe\u0301") {
				t.Errorf("result trie doesn't normalize lookups")
			}
		})
	}
}

func TestLoadError(t *testing.T) {
	ws := words(100)
	ws[42] = "bad\xff"
	for _, lf := range loadFns {
		t.Run(lf.description, func(t *testing.T) {
			got, err := lf.load(context.Background(), ws, BatchSize(5), Concurrency(2))
			if !errors.Is(err, runetrie.ErrInvalidInput) {
				t.Errorf("load yielded %v, wanted ErrInvalidInput", err)
			}
			if err != nil && !strings.Contains(err.Error(), "word 42") {
				t.Errorf("load yielded %q, wanted it to name word 42", err)
			}
			if got != nil {
				t.Errorf("load returned a trie along with error %v", err)
			}
		})
	}
}

func TestLoadEmptyWordDisallowed(t *testing.T) {
	for _, lf := range loadFns {
		t.Run(lf.description, func(t *testing.T) {
			_, err := lf.load(context.Background(), []string{"a", "", "b"},
				TrieOptions(runetrie.DisallowEmpty()))
			if !errors.Is(err, runetrie.ErrInvalidInput) {
				t.Errorf("load yielded %v, wanted ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, lf := range loadFns {
		t.Run(lf.description, func(t *testing.T) {
			_, err := lf.load(ctx, words(100), BatchSize(3))
			if !errors.Is(err, context.Canceled) {
				t.Errorf("load yielded %v, wanted context.Canceled", err)
			}
		})
	}
}

func TestOptionErrors(t *testing.T) {
	for _, test := range []struct {
		description string
		opt         Option
	}{{
		description: "zero batch size",
		opt:         BatchSize(0),
	}, {
		description: "zero concurrency",
		opt:         Concurrency(0),
	}, {
		description: "zero input buffer size",
		opt:         InputBufferSize(0),
	}, {
		description: "batch size beyond int range",
		opt:         BatchSize(math.MaxUint),
	}} {
		t.Run(test.description, func(t *testing.T) {
			if _, err := Load(context.Background(), words(10), test.opt); err == nil {
				t.Errorf("Load() = nil, wanted non-nil")
			}
			if _, _, err := Measure(context.Background(), words(10), test.opt); err == nil {
				t.Errorf("Measure() = nil, wanted non-nil")
			}
			if _, err := SequentialLoad(context.Background(), words(10), test.opt); err == nil {
				t.Errorf("SequentialLoad() = nil, wanted non-nil")
			}
		})
	}
}

func TestRecycling(t *testing.T) {
	t.Run("parallel", func(t *testing.T) {
		const concurrency, bufferSize = 2, 1
		_, m, err := Measure(context.Background(), words(2000),
			BatchSize(4), Concurrency(concurrency), InputBufferSize(bufferSize))
		if err != nil {
			t.Fatalf("Measure() yielded %v, wanted nil", err)
		}
		// Batches can only be in the producer, in each inter-stage buffer,
		// or in a stage instance; a new one is only created when none is
		// waiting to be recycled.
		var maxInFlight uint = 1 + bufferSize + concurrency + bufferSize + 1
		if m.BatchesCreated > maxInFlight {
			t.Errorf("%d batches created for 500 batches, wanted at most %d", m.BatchesCreated, maxInFlight)
		}
		if m.StageMetrics[0].Items != 500 {
			t.Errorf("%d batches produced, wanted 500", m.StageMetrics[0].Items)
		}
	})
	t.Run("sequential", func(t *testing.T) {
		l, err := newLoader(words(100), BatchSize(10))
		if err != nil {
			t.Fatalf("newLoader() yielded %v", err)
		}
		if err := l.sequential(context.Background()); err != nil {
			t.Fatalf("sequential() yielded %v", err)
		}
		if l.created != 1 {
			t.Errorf("%d batches created, wanted 1", l.created)
		}
	})
}

func TestMetricsString(t *testing.T) {
	_, m, err := Measure(context.Background(), words(100), BatchSize(10), Concurrency(2))
	if err != nil {
		t.Fatalf("Measure() yielded %v", err)
	}
	lines := strings.Split(m.String(), "\n")
	// A header, the producer, two inserters and the merger.
	if len(lines) != 5 {
		t.Fatalf("Metrics.String() has %d lines, wanted 5:\n%s", len(lines), m)
	}
	for i, prefix := range []string{"Load wall time: ", "  batch production (0)", "  local insert (0)", "  local insert (1)", "  global merge (0)"} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("Metrics.String() line %d = %q, wanted prefix %q", i, lines[i], prefix)
		}
	}
	var nilMetrics *Metrics
	if got := nilMetrics.String(); got != "" {
		t.Errorf("(*Metrics)(nil).String() = %q, wanted \"\"", got)
	}
}
