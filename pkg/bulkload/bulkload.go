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

// Package bulkload builds a runetrie.Trie from a large word list in
// parallel.
//
// # Pipeline
//
// A runetrie.Trie is not safe for concurrent mutation, so a bulk load can't
// simply have several goroutines insert into the same tree.  Instead, the
// load is decomposed into a three-stage software pipeline:
//
//   - Batch production: the word list is cut into batches of BatchSize words.
//     Each batch carries its own, private Trie.
//   - Local insert: each batch's words are inserted into the batch's Trie.
//     Batches are independent, so this stage runs Concurrency instances.
//   - Global merge: each batch's Trie is merged into the result Trie.  Only
//     this stage touches the result, and it runs a single instance, so the
//     result is only ever mutated by one goroutine.
//
// Batches that have been merged are recycled: batch production clears and
// refills them instead of allocating new ones, so the number of batch tries
// alive at once is bounded by the pipeline's capacity rather than by the
// length of the word list.
//
// # Tuning
//
// Measure works like Load, but also reports how much time each stage
// instance spent working and waiting.  Local insert should dominate; if
// global merge does, BatchSize is likely too small, since merging a batch
// costs about as much as inserting its distinct words.  InputBufferSize
// lets stages drift apart from lockstep, absorbing variation in batch cost.
// SequentialLoad performs the same work on the calling goroutine and is the
// baseline against which the parallel load should be judged.
package bulkload

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/go-runetrie/runetrie"
	"golang.org/x/sync/errgroup"
)

// Option defines a user-supplied option to a load.
type Option func(o *options) error

// BatchSize defines the number of words in each batch.  Defaults to 5000.
func BatchSize(batchSize uint) Option {
	return func(o *options) error {
		if batchSize == 0 {
			return fmt.Errorf("batch size must be at least 1")
		}
		if batchSize > math.MaxInt {
			return fmt.Errorf("batch size must be at most %d", math.MaxInt)
		}
		o.batchSize = batchSize
		return nil
	}
}

// Concurrency defines the number of goroutines performing the local insert
// stage.  Defaults to 1.
func Concurrency(concurrency uint) Option {
	return func(o *options) error {
		if concurrency == 0 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		o.concurrency = concurrency
		return nil
	}
}

// InputBufferSize defines the number of batches that may wait between two
// stages.  Defaults to 1.
func InputBufferSize(inputBufferSize uint) Option {
	return func(o *options) error {
		if inputBufferSize == 0 {
			return fmt.Errorf("input buffer size must be at least 1")
		}
		o.inputBufferSize = inputBufferSize
		return nil
	}
}

// TrieOptions defines the options with which the result Trie, and every
// batch Trie, are constructed.
func TrieOptions(trieOpts ...runetrie.Option) Option {
	return func(o *options) error {
		o.trieOpts = trieOpts
		return nil
	}
}

type options struct {
	batchSize       uint
	concurrency     uint
	inputBufferSize uint
	trieOpts        []runetrie.Option
}

// capacity returns the number of batches the pipeline can hold at once: one
// in production, one in each stage instance, and a full buffer ahead of each
// stage.  New batches are only created when none is waiting to be recycled,
// so this also bounds the number of batches ever created.
func (o *options) capacity() uint {
	return 1 + o.inputBufferSize + o.concurrency + o.inputBufferSize + 1
}

func buildOptions(fns ...Option) (*options, error) {
	ret := &options{
		batchSize:       5000,
		concurrency:     1,
		inputBufferSize: 1,
	}
	for _, fn := range fns {
		if err := fn(ret); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Load builds a Trie containing every word in words, in parallel.  If any
// word is rejected by the Trie, or ctx is done, the load stops and returns
// the error.
func Load(ctx context.Context, words []string, opts ...Option) (*runetrie.Trie, error) {
	trie, _, err := Measure(ctx, words, opts...)
	return trie, err
}

// Measure behaves like Load(), but also returns metrics about the time spent
// in each stage.  Metrics are returned even if the load fails.
func Measure(ctx context.Context, words []string, opts ...Option) (*runetrie.Trie, *Metrics, error) {
	l, err := newLoader(words, opts...)
	if err != nil {
		return nil, nil, err
	}
	m, err := l.measure(ctx)
	if err != nil {
		return nil, m, err
	}
	return l.result, m, nil
}

// SequentialLoad behaves like Load(), but runs on the calling goroutine.
// Concurrency and buffer size options are ignored, but the (single) batch is
// recycled.
func SequentialLoad(ctx context.Context, words []string, opts ...Option) (*runetrie.Trie, error) {
	l, err := newLoader(words, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.sequential(ctx); err != nil {
		return nil, err
	}
	return l.result, nil
}

// StageMetrics defines a set of performance metrics collected for a
// particular instance of a pipeline stage.
type StageMetrics struct {
	StageName                   string
	StageInstance               uint
	WorkDuration, StageDuration time.Duration
	Items                       uint
}

func (sm *StageMetrics) label() string {
	return fmt.Sprintf("%s (%d)", sm.StageName, sm.StageInstance)
}

func (sm *StageMetrics) detailRow(labelCols int) string {
	if sm.Items > 0 {
		return fmt.Sprintf("%-*s: %d batches, total %s (%s/batch), work %s (%s/batch)",
			labelCols, sm.label(),
			sm.Items,
			sm.StageDuration, sm.StageDuration/time.Duration(sm.Items),
			sm.WorkDuration, sm.WorkDuration/time.Duration(sm.Items),
		)
	}
	return fmt.Sprintf("%-*s: %d batches, total %s, work %s",
		labelCols, sm.label(),
		sm.Items,
		sm.StageDuration,
		sm.WorkDuration,
	)
}

// Metrics defines a set of performance metrics collected for an entire load.
type Metrics struct {
	WallDuration time.Duration
	// The number of batches allocated; the rest were recycled.
	BatchesCreated uint
	// Production, then every local insert instance, then the global merge.
	StageMetrics []*StageMetrics
}

func (m *Metrics) String() string {
	if m == nil {
		return ""
	}
	labelCols := 0
	for _, sm := range m.StageMetrics {
		if labelLen := len(sm.label()); labelLen > labelCols {
			labelCols = labelLen
		}
	}
	ret := []string{fmt.Sprintf("Load wall time: %s, %d batches allocated", m.WallDuration, m.BatchesCreated)}
	for _, sm := range m.StageMetrics {
		ret = append(ret, "  "+sm.detailRow(labelCols))
	}
	return strings.Join(ret, "\n")
}

// batch is the work item moving through the pipeline.
type batch struct {
	// The index in the word list of words[0].
	start int
	words []string
	trie  *runetrie.Trie
}

// insert adds the receiver's words to its Trie.
func (b *batch) insert() error {
	for i, word := range b.words {
		if err := b.trie.Add(word); err != nil {
			return fmt.Errorf("word %d: %w", b.start+i, err)
		}
	}
	return nil
}

type loader struct {
	opts   *options
	words  []string
	result *runetrie.Trie
	// Set once the load completes.
	created uint

	// Batches flow toInsert -> toMerge -> recycled -> toInsert.
	toInsert, toMerge, recycled chan *batch
}

func newLoader(words []string, fns ...Option) (*loader, error) {
	opts, err := buildOptions(fns...)
	if err != nil {
		return nil, err
	}
	return &loader{
		opts:     opts,
		words:    words,
		result:   runetrie.New(opts.trieOpts...),
		toInsert: make(chan *batch, opts.inputBufferSize),
		toMerge:  make(chan *batch, opts.inputBufferSize),
		recycled: make(chan *batch, opts.capacity()),
	}, nil
}

// nextBatch returns a batch ready to carry the words starting at index start:
// a recycled one if get yields one, otherwise a new one.
func (l *loader) nextBatch(start int, get func() (*batch, bool)) *batch {
	b, ok := get()
	if ok {
		b.trie.Clear()
	} else {
		b = &batch{trie: runetrie.New(l.opts.trieOpts...)}
		l.created++
	}
	end := min(start+int(l.opts.batchSize), len(l.words))
	b.start = start
	b.words = l.words[start:end]
	return b
}

// send places b on ch, unless ctx is done first.
func send(ctx context.Context, ch chan<- *batch, b *batch) error {
	select {
	case ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// produce cuts the word list into batches and sends them to the local insert
// stage, closing its input once all are sent.
func (l *loader) produce(ctx context.Context, sm *StageMetrics) error {
	defer close(l.toInsert)
	for start := 0; start < len(l.words); start += int(l.opts.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		workStart := time.Now()
		b := l.nextBatch(start, func() (*batch, bool) {
			select {
			case b := <-l.recycled:
				return b, true
			default:
				return nil, false
			}
		})
		sm.WorkDuration += time.Since(workStart)
		if err := send(ctx, l.toInsert, b); err != nil {
			return err
		}
		sm.Items++
	}
	return nil
}

// insert performs one instance of the local insert stage.
func (l *loader) insert(ctx context.Context, sm *StageMetrics) error {
	for b := range l.toInsert {
		if err := ctx.Err(); err != nil {
			return err
		}
		workStart := time.Now()
		err := b.insert()
		sm.WorkDuration += time.Since(workStart)
		if err != nil {
			return err
		}
		if err := send(ctx, l.toMerge, b); err != nil {
			return err
		}
		sm.Items++
	}
	return nil
}

// merge performs the global merge stage, then offers each merged batch for
// recycling.  The recycling buffer can hold every batch in existence, so no
// merged batch is dropped.
func (l *loader) merge(ctx context.Context, sm *StageMetrics) error {
	for b := range l.toMerge {
		if err := ctx.Err(); err != nil {
			return err
		}
		workStart := time.Now()
		l.result.MergeFrom(b.trie)
		sm.WorkDuration += time.Since(workStart)
		sm.Items++
		select {
		case l.recycled <- b:
		default:
		}
	}
	return nil
}

// outputChannelCloser returns a function to be invoked by each of instances
// goroutines when it is done producing output; the last one to invoke it
// closes ch.
func outputChannelCloser(instances uint, ch chan<- *batch) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()
		instances--
		if instances == 0 {
			close(ch)
		}
	}
}

// run starts one goroutine in eg performing fn, tracking its metrics in sm.
func run(ctx context.Context, eg *errgroup.Group, sm *StageMetrics, fn func(context.Context, *StageMetrics) error, done func()) {
	eg.Go(func() error {
		start := time.Now()
		defer func() {
			sm.StageDuration = time.Since(start)
		}()
		if done != nil {
			defer done()
		}
		return fn(ctx, sm)
	})
}

// measure executes the load in parallel, returning its Metrics.
func (l *loader) measure(ctx context.Context) (*Metrics, error) {
	ret := &Metrics{}
	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)

	producerMetrics := &StageMetrics{StageName: "batch production"}
	ret.StageMetrics = append(ret.StageMetrics, producerMetrics)
	run(ctx, eg, producerMetrics, l.produce, nil)

	closeToMerge := outputChannelCloser(l.opts.concurrency, l.toMerge)
	for i := uint(0); i < l.opts.concurrency; i++ {
		sm := &StageMetrics{StageName: "local insert", StageInstance: i}
		ret.StageMetrics = append(ret.StageMetrics, sm)
		run(ctx, eg, sm, l.insert, closeToMerge)
	}

	mergeMetrics := &StageMetrics{StageName: "global merge"}
	ret.StageMetrics = append(ret.StageMetrics, mergeMetrics)
	run(ctx, eg, mergeMetrics, l.merge, nil)

	err := eg.Wait()
	ret.WallDuration = time.Since(start)
	ret.BatchesCreated = l.created
	return ret, err
}

// sequential is like measure(), but executes the load in serial and doesn't
// use channels.
func (l *loader) sequential(ctx context.Context) error {
	var retired *batch
	for start := 0; start < len(l.words); start += int(l.opts.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := l.nextBatch(start, func() (*batch, bool) {
			return retired, retired != nil
		})
		if err := b.insert(); err != nil {
			return err
		}
		l.result.MergeFrom(b.trie)
		retired = b
	}
	return nil
}
