package core

import (
	"context"
	"expvar"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder exports booking service counters as one expvar map:
//
//	operations         "<op>.success" / "<op>.error" counts
//	latency_ms_total   summed latency per operation
//	snapshots          "saved" / "failed" persistence attempts
//	repairs            "passes", "slots_fixed", "orphans_cancelled"
//
// It also implements RepairObserver.
type ExpvarMetricsRecorder struct {
	name       string
	root       *expvar.Map
	operations *expvar.Map
	latency    *expvar.Map
	snapshots  *expvar.Map
	repairs    *expvar.Map
}

// ExpvarMetricsSnapshot is a read-only copy of the exported counters.
type ExpvarMetricsSnapshot struct {
	Results          map[string]map[string]int64 `json:"results"`
	LatencyMS        map[string]float64          `json:"latency_ms_total"`
	SnapshotsSaved   int64                       `json:"snapshots_saved"`
	SnapshotsFailed  int64                       `json:"snapshots_failed"`
	RepairPasses     int64                       `json:"repair_passes"`
	SlotsFixed       int64                       `json:"slots_fixed"`
	OrphansCancelled int64                       `json:"orphans_cancelled"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated unique name when name is empty. expvar names are process global,
// so publishing the same name twice panics.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("courtcore_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:       name,
		root:       new(expvar.Map).Init(),
		operations: new(expvar.Map).Init(),
		latency:    new(expvar.Map).Init(),
		snapshots:  new(expvar.Map).Init(),
		repairs:    new(expvar.Map).Init(),
	}
	rec.root.Set("operations", rec.operations)
	rec.root.Set("latency_ms_total", rec.latency)
	rec.root.Set("snapshots", rec.snapshots)
	rec.root.Set("repairs", rec.repairs)
	expvar.Publish(name, rec.root)
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Observe implements MetricsRecorder. Snapshot writes are reported by the
// service under the persist operation and also feed the snapshots map.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := statusLabel(success)
	r.operations.Add(operation+"."+status, 1)
	r.latency.AddFloat(operation, float64(duration)/float64(time.Millisecond))
	if operation == persistOperation {
		if success {
			r.snapshots.Add("saved", 1)
		} else {
			r.snapshots.Add("failed", 1)
		}
	}
}

// ObserveRepair implements RepairObserver.
func (r *ExpvarMetricsRecorder) ObserveRepair(_ context.Context, report ConsistencyReport) {
	r.repairs.Add("passes", 1)
	r.repairs.Add("slots_fixed", int64(report.Repaired))
	r.repairs.Add("orphans_cancelled", int64(len(report.CancelledOrphans)))
}

// Snapshot copies the exported counters.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	snap := ExpvarMetricsSnapshot{
		Results:          make(map[string]map[string]int64),
		LatencyMS:        make(map[string]float64),
		SnapshotsSaved:   intVar(r.snapshots, "saved"),
		SnapshotsFailed:  intVar(r.snapshots, "failed"),
		RepairPasses:     intVar(r.repairs, "passes"),
		SlotsFixed:       intVar(r.repairs, "slots_fixed"),
		OrphansCancelled: intVar(r.repairs, "orphans_cancelled"),
	}
	r.operations.Do(func(kv expvar.KeyValue) {
		op, status, ok := cutLast(kv.Key, ".")
		counter, isInt := kv.Value.(*expvar.Int)
		if !ok || !isInt {
			return
		}
		if snap.Results[op] == nil {
			snap.Results[op] = make(map[string]int64, 2)
		}
		snap.Results[op][status] = counter.Value()
	})
	r.latency.Do(func(kv expvar.KeyValue) {
		if total, ok := kv.Value.(*expvar.Float); ok {
			snap.LatencyMS[kv.Key] = total.Value()
		}
	})
	return snap
}

func intVar(m *expvar.Map, key string) int64 {
	if v, ok := m.Get(key).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

func cutLast(s, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
