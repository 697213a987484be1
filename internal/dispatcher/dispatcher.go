// Package dispatcher owns the shard pool and routes work to it (spec
// §4.7). It is ported essentially one-to-one from the original's
// ShardedStorageBackend (_examples/original_source/src/storage/mod.rs):
// N shard goroutines each reading from their own bounded channel, a
// deterministic hash routing ingest lines to exactly one shard, and
// fan-out requests broadcast to every shard over one shared response
// channel. The one structural difference is how fan-out completion is
// detected: the original relies on a channel closing once every cloned
// Sender has been dropped, which Go channels do not do implicitly, so
// this package signals completion with a sync.WaitGroup instead.
package dispatcher

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/shard"
	"github.com/dreamware/labeldex/internal/telemetry"
)

// channelCapacity bounds each shard's request queue (spec §4.7).
const channelCapacity = 10000

// Dispatcher routes requests to a fixed pool of shards by a stable hash
// of the request's content, and fans queries out to every shard.
type Dispatcher struct {
	shards    []chan shard.Request
	telemetry telemetry.Sink
	log       *zap.SugaredLogger
}

// New starts numShards shard goroutines and returns a Dispatcher owning
// them. numShards must be >= 1.
func New(numShards int, sink telemetry.Sink, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		shards:    make([]chan shard.Request, numShards),
		telemetry: sink,
		log:       log,
	}
	for i := 0; i < numShards; i++ {
		ch := make(chan shard.Request, channelCapacity)
		d.shards[i] = ch
		s := shard.New(i, sink, log.With("shard", i))
		go s.Run(ch)
	}
	return d
}

// NumShards reports the size of the shard pool.
func (d *Dispatcher) NumShards() int {
	return len(d.shards)
}

func (d *Dispatcher) routeFor(key string) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(len(d.shards)))
}

// RawAdd routes line to a shard by its content hash and enqueues it,
// fire-and-forget: the call returns once the line is queued, not once it
// is processed (spec §4.7). The send blocks only if that shard's channel
// is saturated.
func (d *Dispatcher) RawAdd(line string) {
	idx := d.routeFor(line)
	d.shards[idx] <- shard.Request{Kind: shard.KindRawAdd, Line: line}
}

// Search fans sel out to every shard and collects the union of matching
// records. Response order across shards is unspecified (spec §5).
func (d *Dispatcher) Search(sel record.Selector) []*record.Record {
	start := time.Now()

	out := make(chan *record.Record, channelCapacity)
	var wg sync.WaitGroup
	wg.Add(len(d.shards))
	for _, ch := range d.shards {
		ch <- shard.Request{Kind: shard.KindSearch, Selector: sel, RecordResp: out, Done: &wg}
	}
	go func() { wg.Wait(); close(out) }()

	var records []*record.Record
	for rec := range out {
		records = append(records, rec)
	}

	elapsed := time.Since(start)
	d.telemetry.Observe(telemetry.OpSearch, elapsed)
	d.log.Infow("search", "query", sel.String(), "results", len(records),
		"elapsed_us", elapsed.Microseconds(), "optimized", sel.Options.OptimizeRegex)
	return records
}

// KeyValuesSearch fans q out to every shard and unions the distinct
// values found, deduplicating across shards (spec §4.7: "for key-values,
// results across shards are unioned").
func (d *Dispatcher) KeyValuesSearch(q record.KeyValuesQuery) []string {
	start := time.Now()

	out := make(chan string, channelCapacity)
	var wg sync.WaitGroup
	wg.Add(len(d.shards))
	for _, ch := range d.shards {
		ch <- shard.Request{Kind: shard.KindKeyValuesSearch, KeyValues: q, ValueResp: out, Done: &wg}
	}
	go func() { wg.Wait(); close(out) }()

	seen := make(map[string]bool)
	var values []string
	for v := range out {
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}

	elapsed := time.Since(start)
	d.telemetry.Observe(telemetry.OpKeyValuesSearch, elapsed)
	d.log.Infow("key_values_search", "query", q.String(), "results", len(values),
		"elapsed_us", elapsed.Microseconds(), "optimized", q.Selector.Options.OptimizeRegex)
	return values
}

// Status is the dispatcher-wide status report: one entry per shard (spec
// §6, GET /status).
type Status struct {
	Shards []shard.Status `json:"shards"`
}

// Status collects every shard's status report.
func (d *Dispatcher) Status() Status {
	statuses := make([]shard.Status, len(d.shards))
	for i, ch := range d.shards {
		out := make(chan shard.Status, 1)
		ch <- shard.Request{Kind: shard.KindStatus, StatusResp: out}
		statuses[i] = <-out
	}
	return Status{Shards: statuses}
}

// Wait polls until every shard's channel is observed empty. This is a
// best-effort quiescence check, not a barrier (spec §4.7): a line could
// still be mid-flight inside a shard's processing loop when Wait
// returns if it was dequeued a moment before the check.
func (d *Dispatcher) Wait(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if d.allChannelsEmpty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("dispatcher: wait for quiescence: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) allChannelsEmpty() bool {
	for _, ch := range d.shards {
		if len(ch) != 0 {
			return false
		}
	}
	return true
}
