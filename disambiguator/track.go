package disambiguator

import (
	"context"

	"lighthousetrack/libs/observability"
)

// dataBit is the acode bit that conveys OOTX data-bit presence (bit1 of
// the 3-bit acode). Only its presence is reported; the payload it might
// carry is out of scope (spec §1 Non-goals).
const dataBit = 2

// ingestTracked advances the locked-mode state machine for one event
// (spec §4.5): applies the long-gap penalty, predicts the schedule slot,
// flushes and transitions on a slot change, then validates the event
// against whichever slot it lands in.
func (d *Disambiguator) ingestTracked(ctx context.Context, objID ObjectID, s *objectState, ev LightEvent) {
	if s.haveLast {
		gap := elapsedTicks(ev.Timestamp, s.lastTimestamp)
		if gap > timebaseHz {
			penalty := int32(10 * (uint64(gap) / uint64(timebaseHz)))
			s.confidence -= penalty
			if d.metrics != nil {
				d.metrics.Confidence.Set(float64(s.confidence), "object", string(objID))
			}
			if s.confidence < penalty {
				d.demote(ctx, objID, s, "gap_penalty")
				return
			}
		}
	}

	lh := slotAt(s.mode).Lighthouse
	period := Period(s.sixtyHzLocked)
	center := ev.Timestamp + ev.Length/2
	offset := ApplyMod(center, s.modOffset[lh], period)
	newSlot, _ := FindSlotByOffset(offset, s.sixtyHzLocked)

	if newSlot != s.mode {
		d.flushSlot(ctx, objID, s)
		s.mode = newSlot
		s.resetSweepBuffer()
		s.accumulator = syncAccumulator{}
	}

	slot := slotAt(s.mode)
	if slot.IsSweep {
		d.validateSweep(s, slot, ev)
	} else {
		d.validateSync(ctx, objID, s, slot, ev)
	}
}

// validateSync applies spec §4.5's sync-slot validation: reflections below
// 400 ticks are ignored, a mismatched acode degrades confidence (and may
// demote), and a matching pulse both bumps confidence and extends the
// in-progress sync accumulator for this slot occurrence.
func (d *Disambiguator) validateSync(ctx context.Context, objID ObjectID, s *objectState, slot ScheduleSlot, ev LightEvent) {
	if ev.Length < 400 {
		return
	}

	if AcodeError(slot.AcodeBase, ev.Length) > 1250 {
		s.confidence -= 3
		if d.metrics != nil {
			d.metrics.SlotMismatches.Inc()
			d.metrics.Confidence.Set(float64(s.confidence), "object", string(objID))
		}
		if s.confidence < 3 {
			d.demote(ctx, objID, s, "slot_mismatch")
		}
		return
	}

	if s.confidence < 100 {
		s.confidence++
		if d.metrics != nil {
			d.metrics.Confidence.Set(float64(s.confidence), "object", string(objID))
		}
	}
	s.accumulator.extend(ev)
}

// validateSweep applies spec §4.5's sweep-slot validation: saturated
// pulses are discarded outright, legitimate-but-long pulses cost a little
// confidence, and each sensor retains only its longest pulse this slot.
func (d *Disambiguator) validateSweep(s *objectState, slot ScheduleSlot, ev LightEvent) {
	if ev.Length > 7000 {
		return
	}
	if ev.Length > 3000 {
		s.confidence--
	}
	if int(ev.SensorID) >= len(s.sweepBuffer) {
		return
	}
	if !s.sweepSeen[ev.SensorID] || ev.Length > s.sweepBuffer[ev.SensorID].Length {
		s.sweepBuffer[ev.SensorID] = ev
		s.sweepSeen[ev.SensorID] = true
	}
}

// flushSlot is the transition processor (spec §4.6), called just before
// s.mode changes to seal and emit whatever the outgoing slot accumulated.
func (d *Disambiguator) flushSlot(ctx context.Context, objID ObjectID, s *objectState) {
	oldSlot := slotAt(s.mode)
	if oldSlot.IsSweep {
		d.flushSweep(ctx, objID, s, oldSlot)
	} else {
		d.flushSync(ctx, objID, s, oldSlot)
	}
}

// flushSync seals the outgoing sync slot's accumulator, refreshes the
// lighthouse's phase anchor, infers the data bit from the sealed pulse
// length, and (confidence permitting) emits a merged sync light record.
func (d *Disambiguator) flushSync(ctx context.Context, objID ObjectID, s *objectState, slot ScheduleSlot) {
	if !s.accumulator.active {
		return
	}
	lastSync := s.accumulator.seal()
	s.syncHistory.push(lastSync)

	oldSlotIndex := s.mode
	newOffset := lastSync.FirstTimestamp - SlotStart(oldSlotIndex)
	period := Period(s.sixtyHzLocked)

	prevAnchor := s.modOffset[slot.Lighthouse]
	drift := driftMagnitude(ApplyMod(newOffset, prevAnchor, period), period)
	if drift > 100 {
		observability.LogDriftWarning(ctx, string(objID), drift)
		observability.RecordDriftWarning(ctx, drift)
	}
	if d.metrics != nil {
		d.metrics.DriftTicks.Observe(float64(drift))
	}
	s.modOffset[slot.Lighthouse] = newOffset

	acode := inferDataBit(slot.AcodeBase, lastSync.LongestLength)

	if s.confidence > 80 {
		d.dispatch(ctx, LightRecord{
			Object:      objID,
			Kind:        RecordSync,
			SensorIndex: -lastSync.Count,
			Acode:       acode,
			SweepOffset: 0,
			Timestamp:   lastSync.FirstTimestamp,
			Length:      lastSync.LongestLength,
			Lighthouse:  slot.Lighthouse,
			Axis:        slot.Axis,
		})
	}
}

// flushSweep computes the per-sensor average pulse length seen in the
// outgoing sweep slot, filters outliers, rebases each surviving sensor's
// offset onto the start of the preceding sync slot, and (confidence
// permitting) emits one light record per surviving sensor.
func (d *Disambiguator) flushSweep(ctx context.Context, objID ObjectID, s *objectState, slot ScheduleSlot) {
	var sum uint64
	var n int
	for i, seen := range s.sweepSeen {
		if !seen {
			continue
		}
		sum += uint64(s.sweepBuffer[i].Length)
		n++
	}
	if n == 0 {
		s.resetSweepBuffer()
		return
	}
	avg := sum / uint64(n)
	lo, hi := uint64(10), avg*3

	period := Period(s.sixtyHzLocked)
	oldSlotIndex := s.mode
	anchor := s.modOffset[slot.Lighthouse]
	oldStart := int64(SlotStart(oldSlotIndex))

	for i, seen := range s.sweepSeen {
		if !seen {
			continue
		}
		ev := s.sweepBuffer[i]
		length := uint64(ev.Length)
		if length < lo || length > hi {
			continue
		}

		center := ev.Timestamp + ev.Length/2
		leOffset := ApplyMod(center, anchor, period)
		sweepOffsetI := int64(leOffset) - oldStart + int64(priorSyncWindow)
		if sweepOffsetI <= 0 {
			panic("disambiguator: non-positive sweep offset after modulus")
		}

		if s.confidence > 80 {
			d.dispatch(ctx, LightRecord{
				Object:      objID,
				Kind:        RecordSweep,
				SensorIndex: i,
				Acode:       slot.AcodeBase,
				SweepOffset: uint32(sweepOffsetI),
				Timestamp:   ev.Timestamp,
				Length:      ev.Length,
				Lighthouse:  slot.Lighthouse,
				Axis:        slot.Axis,
			})
		}
	}
	s.resetSweepBuffer()
}

// demote resets an object back to UNKNOWN (spec §4.5/§4.7): a fresh lock
// must be rediscovered from scratch, and a 60 Hz regime hold is released
// so sibling objects no longer skip full-period discovery on its account.
func (d *Disambiguator) demote(ctx context.Context, objID ObjectID, s *objectState, reason string) {
	wasSixtyHz := s.sixtyHzLocked
	conf := s.confidence

	s.mode = modeUnknown
	s.confidence = 0
	s.accumulator = syncAccumulator{}
	s.resetSweepBuffer()
	s.sixtyHzLocked = false

	if wasSixtyHz {
		if err := d.regime.Release60Hz(ctx, string(objID)); err != nil {
			observability.LogEvent(ctx, "warn", "regime_release_failed", map[string]any{"error": err.Error()})
		}
	}
	if d.metrics != nil {
		d.metrics.Demotions.Inc()
		d.metrics.Confidence.Set(0, "object", string(objID))
	}
	if d.store != nil {
		if err := d.store.RecordTransition(ctx, string(objID), "demoted"); err != nil {
			observability.LogEvent(ctx, "warn", "diagnostics_store_failed", map[string]any{"error": err.Error()})
		}
	}
	observability.RecordDemotion(ctx, conf)
	observability.LogDemotion(ctx, string(objID), reason, conf)
}

// driftMagnitude reduces a modulo-period delta to its smallest-magnitude
// representation: a drift of period-1 is really a drift of -1.
func driftMagnitude(delta, period uint32) uint32 {
	if period == 0 {
		return delta
	}
	complement := period - delta
	if complement < delta {
		return complement
	}
	return delta
}

// inferDataBit picks whichever of acodeBase's two timing variants (data
// bit clear or set) is closer to the observed pulse length.
func inferDataBit(acodeBase int, length uint32) int {
	without := absDiff(Timing(acodeBase), length)
	with := absDiff(Timing(acodeBase|dataBit), length)
	if with < without {
		return acodeBase | dataBit
	}
	return acodeBase
}
