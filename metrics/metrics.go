// Package metrics is the node's purely-observational stats reporter
// (SPEC_FULL.md §4.8): it samples peer count, pool size, worker phase,
// process memory and an estimate of the state's heap size on an interval
// and, when configured with a URL, pushes them to InfluxDB.
// Nothing here ever feeds back into the reducer.
package metrics

import (
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/elastic/gosigar"
	"github.com/fjl/memsize"

	"snarker-node/log"
)

// Interval is how often the reporter samples (SPEC_FULL.md §4.8: 10s).
const Interval = 10 * time.Second

// Snapshot is a point-in-time readout of the values worth reporting.
// Callers (the reactor's owner) fill this from State on each tick; the
// reporter never touches State itself.
type Snapshot struct {
	PeerCount   int
	PoolSize    int
	WorkerPhase string
}

// SnapshotFunc returns the current Snapshot; the reporter calls it on
// every tick.
type SnapshotFunc func() Snapshot

// Reporter periodically samples via its SnapshotFunc and, if url is
// configured, pushes the sample to InfluxDB.
type Reporter struct {
	url      string
	database string
	sample   SnapshotFunc
	stateRef interface{} // scanned by memsize.Scan for a heap estimate

	stop chan struct{}
}

// New builds a Reporter. url may be empty, in which case Run only logs
// each sample locally.
func New(url, database string, sample SnapshotFunc, stateRef interface{}) *Reporter {
	return &Reporter{url: url, database: database, sample: sample, stateRef: stateRef, stop: make(chan struct{})}
}

// Run blocks, sampling every Interval, until Stop is called.
func (r *Reporter) Run() {
	var c client.Client
	if r.url != "" {
		var err error
		c, err = client.NewHTTPClient(client.HTTPConfig{Addr: r.url, Timeout: 5 * time.Second})
		if err != nil {
			log.Error("metrics: failed to build influxdb client", "err", err)
			c = nil
		}
	}

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.tick(c)
		}
	}
}

func (r *Reporter) tick(c client.Client) {
	snap := r.sample()

	var mem gosigar.Mem
	_ = mem.Get()
	heap := memsize.Scan(r.stateRef)

	log.Debug("metrics sample", "peers", snap.PeerCount, "pool", snap.PoolSize,
		"worker", snap.WorkerPhase, "rss", mem.ActualUsed, "state_heap", heap.Total)

	if c == nil {
		return
	}
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: r.database})
	if err != nil {
		log.Warn("metrics: failed to build batch", "err", err)
		return
	}
	fields := map[string]interface{}{
		"peer_count":   snap.PeerCount,
		"pool_size":    snap.PoolSize,
		"worker_phase": snap.WorkerPhase,
		"rss_bytes":    int64(mem.ActualUsed),
		"state_heap":   int64(heap.Total),
	}
	pt, err := client.NewPoint("snarker", nil, fields, time.Now())
	if err != nil {
		log.Warn("metrics: failed to build point", "err", err)
		return
	}
	bp.AddPoint(pt)
	if err := c.Write(bp); err != nil {
		log.Warn("metrics: write failed", "err", err)
	}
}

// Stop ends the reporter's loop.
func (r *Reporter) Stop() { close(r.stop) }
