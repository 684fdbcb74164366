// Package disambiguator classifies a raw stream of optical sensor pulses
// from rotating-laser base stations into sync and sweep events, locks onto
// each tracked object's timing schedule, and emits normalized light
// records to an upstream pose solver.
package disambiguator

import "github.com/google/uuid"

// ObjectID identifies one tracked object across the lifetime of its
// per-object state. Callers may supply their own (e.g. a USB device path
// or an existing fleet identifier) via Configure, or mint one with
// NewObjectID.
type ObjectID string

// NewObjectID mints a fresh, globally unique object identifier.
func NewObjectID() ObjectID {
	return ObjectID(uuid.New().String())
}

// Lighthouse is one of the two rotating base stations a tracked object can
// see.
type Lighthouse uint8

const (
	LighthouseA Lighthouse = iota
	LighthouseB
)

func (l Lighthouse) String() string {
	if l == LighthouseB {
		return "B"
	}
	return "A"
}

// Axis is the sweep plane a sweep pulse belongs to.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "Y"
	}
	return "X"
}

// PulseKind is the coarse classification of a raw pulse by its length.
type PulseKind uint8

const (
	PulseSweep PulseKind = iota
	PulseSync
)

// LightEvent is one raw optical pulse observed on a single sensor.
type LightEvent struct {
	// SensorID identifies which photodiode on the tracked object saw the
	// pulse.
	SensorID uint8
	// Timestamp is the 32-bit free-running tick counter value at pulse
	// start. It wraps every 2^32 ticks.
	Timestamp uint32
	// Length is the pulse duration in ticks.
	Length uint32
}

// RecordKind distinguishes the two shapes an emitted LightRecord can take.
type RecordKind uint8

const (
	RecordSweep RecordKind = iota
	RecordSync
)

// SyncIndexCode is the legacy sentinel historically passed as the "index"
// parameter of emit_light for a merged sync record, alongside a negated
// pulse count carried in the same parameter. This implementation resolves
// that overload with the explicit Kind field instead of relying on the
// magic value, but keeps the constant around for callers translating to
// or from the original wire convention.
const SyncIndexCode = -2

// LightRecord is the normalized pulse handed to the upstream pose solver.
// It corresponds to the legacy callback
// emit_light(object, index, acode, sweep_offset_ticks, timestamp, length, lighthouse):
// SensorIndex plays the role of "index" (a sensor id for sweeps, a negated
// pulse count for syncs), and Kind disambiguates the two cases instead of
// sniffing -2 out of the index field.
type LightRecord struct {
	Object      ObjectID
	Kind        RecordKind
	SensorIndex int
	Acode       int
	SweepOffset uint32
	Timestamp   uint32
	Length      uint32
	Lighthouse  Lighthouse
	Axis        Axis
}

// EmitFunc is the upstream collaborator that consumes normalized light
// records. It is expected to be fast and non-blocking; Disambiguator
// dispatches through a circuit breaker, so a panicking emitter is turned
// into a logged rejection and, once the breaker opens, is no longer
// called. Nothing bounds how long a single call may take.
type EmitFunc func(rec LightRecord)

// ScheduleSlot is one of the twelve positions in the lighthouse timing
// schedule.
type ScheduleSlot struct {
	AcodeBase  int
	Lighthouse Lighthouse
	Axis       Axis
	Window     uint32
	IsSweep    bool
}
