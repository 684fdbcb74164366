package disambiguator

// buildPeriodEvents synthesizes a jitter-free event stream following the
// authoritative schedule table, for `periods` full cycles starting at
// anchor `base`. When skipLighthouseB is true, lighthouse B's slots are
// omitted entirely, simulating genuine 60 Hz single-lighthouse hardware
// rather than a two-lighthouse deployment merely restricted to the first
// six slots.
func buildPeriodEvents(base uint32, sixtyHz, skipLighthouseB bool, sensorCount int, sweepLen uint32, periods int) []LightEvent {
	var events []LightEvent
	n := slotCount(sixtyHz)
	anchor := base

	for p := 0; p < periods; p++ {
		for i := 1; i <= n; i++ {
			slot := slotAt(i)
			if skipLighthouseB && slot.Lighthouse == LighthouseB {
				continue
			}
			start := anchor + SlotStart(i)

			if slot.IsSweep {
				for sIdx := 0; sIdx < sensorCount; sIdx++ {
					ts := start + 1000 + uint32(sIdx)*50
					events = append(events, LightEvent{SensorID: uint8(sIdx), Timestamp: ts, Length: sweepLen})
				}
				continue
			}

			ts := start + 200
			events = append(events, LightEvent{SensorID: 0, Timestamp: ts, Length: Timing(slot.AcodeBase)})
		}
		anchor += Period(sixtyHz)
	}
	return events
}

func collectEmit(out *[]LightRecord) EmitFunc {
	return func(rec LightRecord) {
		*out = append(*out, rec)
	}
}
