package disambiguator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lighthousetrack/libs/database"
	"lighthousetrack/libs/globalstate"
	"lighthousetrack/libs/observability"
	"lighthousetrack/libs/resilience"
)

// modeUnknown is the PerObjectState.mode value before a schedule lock has
// been found (or after a demotion back to it). Locked modes are the
// 1-indexed schedule slot currently being tracked (1..12).
const modeUnknown = 0

// stabiliseDropCount is how many leading events per object are dropped
// unconditionally, covering hardware warm-up noise on cold start.
const stabiliseDropCount = 200

// timebaseHz is the tick-clock frequency; used to convert an inter-event
// gap in ticks into a "seconds of silence" figure for the gap penalty.
const timebaseHz = 48_000_000

// ErrSensorCountRequired is returned by Configure when asked to register a
// tracked object with a non-positive sensor count.
var ErrSensorCountRequired = errors.New("disambiguator: sensor count must be positive")

// objectState is the per-object disambiguator state machine (spec §3
// PerObjectState). It is created lazily by Configure and lives for as long
// as the caller keeps the object registered.
type objectState struct {
	sensorCount int

	mode          int
	modOffset     [2]uint32
	sixtyHzLocked bool
	confidence    int32

	syncHistory syncHistory
	accumulator syncAccumulator

	sweepBuffer []LightEvent
	sweepSeen   []bool

	stabilise int

	haveLast      bool
	lastTimestamp uint32

	failures int
}

func (s *objectState) resetSweepBuffer() {
	for i := range s.sweepSeen {
		s.sweepSeen[i] = false
	}
}

// Disambiguator is the top-level ingest coordinator for one process. It
// owns every tracked object's per-object state plus the collaborators
// shared across objects: the global 60 Hz regime flag, metrics, optional
// diagnostics persistence, and the guarded dispatch path to the upstream
// pose solver.
type Disambiguator struct {
	mu      sync.Mutex
	objects map[ObjectID]*objectState

	regime  globalstate.RegimeStore
	metrics *observability.TrackingMetrics
	store   *database.Store

	emit  EmitFunc
	guard *resilience.EmitGuard
}

// New creates a Disambiguator that dispatches normalized light records to
// emit. A process-local, mutex-guarded regime store is used by default;
// attach a shared one with WithRegimeStore for multi-process deployments.
func New(emit EmitFunc) *Disambiguator {
	return &Disambiguator{
		objects: make(map[ObjectID]*objectState),
		regime:  globalstate.NewMemoryStore(),
		emit:    emit,
		guard:   resilience.NewEmitGuard("lighthouse_emit"),
	}
}

// WithRegimeStore swaps the default in-process 60 Hz regime flag for a
// shared one (e.g. globalstate.RedisStore), for when multiple processes
// track objects that should share the regime.
func (d *Disambiguator) WithRegimeStore(r globalstate.RegimeStore) *Disambiguator {
	d.regime = r
	return d
}

// WithMetrics attaches a pre-wired TrackingMetrics set.
func (d *Disambiguator) WithMetrics(m *observability.TrackingMetrics) *Disambiguator {
	d.metrics = m
	return d
}

// WithStore attaches an optional diagnostics Store. It never affects
// tracking decisions; it only records lock/demotion history.
func (d *Disambiguator) WithStore(s *database.Store) *Disambiguator {
	d.store = s
	return d
}

// Configure registers objID with sensorCount sensors, allocating its
// sweep buffer. It must be called before the first Ingest for an object;
// events for unconfigured objects are silently dropped (spec §4.7 step 1).
// Calling Configure again for an already-registered object resets its
// state machine to UNKNOWN.
func (d *Disambiguator) Configure(objID ObjectID, sensorCount int) error {
	if sensorCount <= 0 {
		return ErrSensorCountRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.objects[objID] = &objectState{
		sensorCount: sensorCount,
		sweepBuffer: make([]LightEvent, sensorCount),
		sweepSeen:   make([]bool, sensorCount),
	}
	return nil
}

// Release forgets objID, releasing any 60 Hz regime hold it still had.
func (d *Disambiguator) Release(ctx context.Context, objID ObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.objects[objID]
	if !ok {
		return
	}
	if s.sixtyHzLocked {
		if err := d.regime.Release60Hz(ctx, string(objID)); err != nil {
			observability.LogEvent(ctx, "warn", "regime_release_failed", map[string]any{"error": err.Error()})
		}
	}
	delete(d.objects, objID)
}

// Ingest is the top-level entry point (spec §4.7): it applies
// stabilisation, sensor-id validation, and dispatches between phase
// discovery and the locked tracking state machine.
func (d *Disambiguator) Ingest(ctx context.Context, objID ObjectID, ev LightEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.objects[objID]
	if !ok || s.sensorCount == 0 {
		return nil
	}

	if s.stabilise < stabiliseDropCount {
		s.stabilise++
		s.haveLast = true
		s.lastTimestamp = ev.Timestamp
		return nil
	}

	if int(ev.SensorID) >= s.sensorCount {
		observability.LogEvent(ctx, "warn", "sensor_out_of_range", map[string]any{
			"object":       string(objID),
			"sensor_id":    ev.SensorID,
			"sensor_count": s.sensorCount,
		})
		s.haveLast = true
		s.lastTimestamp = ev.Timestamp
		return nil
	}

	if s.mode == modeUnknown {
		d.ingestUnknown(ctx, objID, s, ev)
	} else {
		d.ingestTracked(ctx, objID, s, ev)
	}

	s.haveLast = true
	s.lastTimestamp = ev.Timestamp
	return nil
}

// ingestUnknown drives the pre-lock sync accumulator and phase discoverer
// (spec §4.7 step 5).
func (d *Disambiguator) ingestUnknown(ctx context.Context, objID ObjectID, s *objectState, ev LightEvent) {
	if Classify(ev.Length) != PulseSync {
		d.sealIfActive(ctx, objID, s)
		return
	}
	if s.accumulator.active && pulsesOverlap(s.accumulator.last, ev) {
		s.accumulator.extend(ev)
		return
	}
	d.sealIfActive(ctx, objID, s)
	s.accumulator.extend(ev)
}

// sealIfActive seals any in-progress sync accumulator, pushes it to
// history, and runs one phase-discovery attempt.
func (d *Disambiguator) sealIfActive(ctx context.Context, objID ObjectID, s *objectState) {
	if !s.accumulator.active {
		return
	}
	entry := s.accumulator.seal()
	s.syncHistory.push(entry)
	d.attemptDiscovery(ctx, objID, s)
}

// dispatch sends rec to the upstream emit callback through the circuit
// breaker, so a panicking consumer degrades to a logged rejection (and,
// after repeated panics, to an open breaker that skips the callback)
// instead of unwinding ingest. A slow consumer is not interrupted.
func (d *Disambiguator) dispatch(ctx context.Context, rec LightRecord) {
	if d.emit == nil {
		return
	}

	kind := "sweep"
	if rec.Kind == RecordSync {
		kind = "sync"
	}

	start := time.Now()
	_, err := d.guard.Execute(ctx, func() (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("emit panicked: %v", r)
			}
		}()
		d.emit(rec)
		return nil, nil
	})
	if err != nil {
		observability.LogEvent(ctx, "warn", "emit_rejected", map[string]any{
			"object": string(rec.Object), "kind": kind, "error": err.Error(),
		})
		return
	}

	if d.metrics != nil {
		if rec.Kind == RecordSync {
			d.metrics.EmittedSync.Inc()
		} else {
			d.metrics.EmittedSweep.Inc()
		}
	}
	observability.RecordEmission(ctx, kind, rec.Lighthouse.String(), time.Since(start))
}
