package disambiguator

import (
	"context"

	"lighthousetrack/libs/observability"
)

// inlierThreshold is the minimum number of retained sync-history entries
// (out of SyncHistoryLen) that must agree with a candidate anchor before
// it is accepted as a lock.
const inlierThreshold = SyncHistoryLen - 1

// initialLockConfidence is the confidence a tracked object starts at the
// moment it locks. Spec leaves the exact number open; a moderate middle
// value means 31 further sync hits (+1 each) are required before
// emission unlocks above the 80 threshold, and 16 consecutive sync
// mismatches (-3 each) before a fresh lock is abandoned again.
const initialLockConfidence = 50

// attemptDiscovery runs one phase-discovery pass over the object's sync
// history after a sync entry has just been sealed.
func (d *Disambiguator) attemptDiscovery(ctx context.Context, objID ObjectID, s *objectState) {
	recent, ok := s.syncHistory.last()
	if !ok {
		return
	}
	approx, ok := FindAcode(recent.LongestLength)
	if !ok {
		d.recordDiscoveryFailure(ctx, objID, s)
		return
	}
	approx &= 0b101 // clear the data bit; discovery only needs the base code

	sibling60Hz, err := d.regime.IsSingle60Hz(ctx)
	if err != nil {
		observability.LogEvent(ctx, "warn", "regime_lookup_failed", map[string]any{"error": err.Error()})
		sibling60Hz = false
	}

	history := s.syncHistory.all()

	for g := 1; g <= 12; g++ {
		slot := slotAt(g)
		if slot.IsSweep || slot.AcodeBase != approx {
			continue
		}
		guessAnchor := recent.FirstTimestamp - SlotStart(g)

		for _, sixtyHz := range [...]bool{false, true} {
			if !sixtyHz && sibling60Hz {
				continue
			}
			if sixtyHz && g > 6 {
				continue
			}
			if d.countInliers(history, guessAnchor, sixtyHz) >= inlierThreshold {
				d.lock(ctx, objID, s, g, guessAnchor, sixtyHz)
				return
			}
		}
	}

	d.recordDiscoveryFailure(ctx, objID, s)
}

func (d *Disambiguator) countInliers(history []SyncEntry, anchor uint32, sixtyHz bool) int {
	period := Period(sixtyHz)
	inliers := 0
	for _, entry := range history {
		offset := ApplyMod(entry.FirstTimestamp, anchor, period)
		matchSlot, offsetErr := FindSlotByOffset(offset, sixtyHz)
		msl := slotAt(matchSlot)
		if msl.IsSweep {
			continue
		}
		if sixtyHz && msl.Lighthouse == LighthouseB {
			continue
		}
		if offsetErr > 500 {
			continue
		}
		if AcodeError(msl.AcodeBase, entry.LongestLength) > 500 {
			continue
		}
		inliers++
	}
	return inliers
}

func (d *Disambiguator) lock(ctx context.Context, objID ObjectID, s *objectState, slot int, anchor uint32, sixtyHz bool) {
	s.mode = slot
	s.modOffset[LighthouseA] = anchor
	s.modOffset[LighthouseB] = anchor
	s.sixtyHzLocked = sixtyHz
	s.confidence = initialLockConfidence
	s.failures = 0

	if sixtyHz {
		if err := d.regime.Acquire60Hz(ctx, string(objID)); err != nil {
			observability.LogEvent(ctx, "warn", "regime_acquire_failed", map[string]any{"error": err.Error()})
		}
	}
	if d.metrics != nil {
		d.metrics.LockTransitions.Inc()
		d.metrics.Confidence.Set(float64(s.confidence), "object", string(objID))
	}
	if d.store != nil {
		if err := d.store.RecordTransition(ctx, string(objID), "locked"); err != nil {
			observability.LogEvent(ctx, "warn", "diagnostics_store_failed", map[string]any{"error": err.Error()})
		}
	}
	observability.RecordLockTransition(ctx, slot, sixtyHz)
	observability.LogEvent(ctx, "info", "lighthouse_locked", map[string]any{
		"object": string(objID), "slot": slot, "single_60hz": sixtyHz,
	})
}

func (d *Disambiguator) recordDiscoveryFailure(ctx context.Context, objID ObjectID, s *objectState) {
	s.failures++
	if d.metrics != nil {
		d.metrics.DiscoveryFailures.Inc()
	}
	if s.failures%1000 != 0 {
		return
	}
	observability.RecordDiscoveryFailure(ctx, s.failures)
	observability.LogEvent(ctx, "warn", "discovery_failed", map[string]any{
		"object": string(objID), "failures": s.failures,
	})
	if d.store != nil {
		if err := d.store.RecordDiscoveryFailure(ctx, string(objID), s.failures); err != nil {
			observability.LogEvent(ctx, "warn", "diagnostics_store_failed", map[string]any{"error": err.Error()})
		}
	}
}
