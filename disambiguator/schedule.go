package disambiguator

// The twelve-slot lighthouse timing schedule. Slots alternate two narrow
// sync windows followed by one wide sweep window, four times per period:
// one (sync, sync, sweep) group per lighthouse per axis.
const (
	periodFull = 1_600_000 // ticks; full 12-slot schedule
	periodHalf = 800_000   // ticks; 60 Hz single-lighthouse schedule, first 6 slots only
)

// slotStarts[i] is the tick offset, relative to the per-lighthouse anchor,
// at which slot i+1 begins.
var slotStarts = [12]uint32{
	0, 20_000, 40_000,
	400_000, 420_000, 440_000,
	800_000, 820_000, 840_000,
	1_200_000, 1_220_000, 1_240_000,
}

var scheduleTable = [12]ScheduleSlot{
	{AcodeBase: 4, Lighthouse: LighthouseB, Axis: AxisX, Window: 20_000, IsSweep: false},
	{AcodeBase: 0, Lighthouse: LighthouseA, Axis: AxisX, Window: 20_000, IsSweep: false},
	{AcodeBase: 4, Lighthouse: LighthouseA, Axis: AxisX, Window: 360_000, IsSweep: true},
	{AcodeBase: 5, Lighthouse: LighthouseB, Axis: AxisY, Window: 20_000, IsSweep: false},
	{AcodeBase: 1, Lighthouse: LighthouseA, Axis: AxisY, Window: 20_000, IsSweep: false},
	{AcodeBase: 1, Lighthouse: LighthouseA, Axis: AxisY, Window: 360_000, IsSweep: true},
	{AcodeBase: 0, Lighthouse: LighthouseB, Axis: AxisX, Window: 20_000, IsSweep: false},
	{AcodeBase: 4, Lighthouse: LighthouseA, Axis: AxisX, Window: 20_000, IsSweep: false},
	{AcodeBase: 4, Lighthouse: LighthouseB, Axis: AxisX, Window: 360_000, IsSweep: true},
	{AcodeBase: 1, Lighthouse: LighthouseB, Axis: AxisY, Window: 20_000, IsSweep: false},
	{AcodeBase: 5, Lighthouse: LighthouseA, Axis: AxisY, Window: 20_000, IsSweep: false},
	{AcodeBase: 5, Lighthouse: LighthouseB, Axis: AxisY, Window: 360_000, IsSweep: true},
}

// priorSyncWindow is the width of the sync slot that always immediately
// precedes a sweep slot in the schedule above; used to rebase a sweep
// pulse's offset onto the start of that preceding sync slot.
const priorSyncWindow = 20_000

// slotAt returns the 1-indexed schedule slot i (1..12).
func slotAt(i int) ScheduleSlot {
	return scheduleTable[i-1]
}

// SlotStart returns the tick offset at which 1-indexed slot i begins.
func SlotStart(i int) uint32 {
	return slotStarts[i-1]
}

// Period returns the schedule period for the given regime.
func Period(sixtyHz bool) uint32 {
	if sixtyHz {
		return periodHalf
	}
	return periodFull
}

func slotCount(sixtyHz bool) int {
	if sixtyHz {
		return 6
	}
	return 12
}

// ApplyMod reduces ts relative to anchor modulo period, tolerating 32-bit
// timestamp wraparound. When ts has already wrapped past anchor the large
// backward gap (> 2^31 ticks) is recognized as a wrap rather than a
// genuine clock regression.
func ApplyMod(ts, anchor, period uint32) uint32 {
	if period == 0 {
		return 0
	}
	if ts >= anchor {
		return (ts - anchor) % period
	}
	gap := anchor - ts
	if gap > (1 << 31) {
		diff := (uint64(1)<<32 - uint64(anchor)) + uint64(ts)
		return uint32(diff % uint64(period))
	}
	d := int64(ts) - int64(anchor)
	m := int64(period)
	r := d % m
	if r < 0 {
		r += m
	}
	return uint32(r)
}

// elapsedTicks returns the forward-only elapsed duration from prev to cur,
// tolerating one 32-bit wraparound. A genuine backward jump (not a wrap)
// yields zero: there is no forward gap to penalize.
func elapsedTicks(cur, prev uint32) uint32 {
	if cur >= prev {
		return cur - prev
	}
	gap := prev - cur
	if gap > (1 << 31) {
		return uint32((uint64(1)<<32 - uint64(prev)) + uint64(cur))
	}
	return 0
}

// FindSlotByOffset scans the schedule in order and returns the slot whose
// boundary is nearest to offset, along with the distance to that boundary.
// The closer of the predecessor/successor slot wins (the predecessor on an
// exact tie), except that a sweep predecessor is kept whenever the successor is more than
// 1000 ticks away: sweep slots are wide and an event near their tail must
// not be mis-classified as the next sync.
func FindSlotByOffset(offset uint32, sixtyHz bool) (int, uint32) {
	n := slotCount(sixtyHz)
	period := Period(sixtyHz)

	cur := n + 1 // sentinel: wraps to the start of the next period
	for i := 1; i <= n; i++ {
		if SlotStart(i) > offset {
			cur = i
			break
		}
	}

	var curStart uint32
	if cur > n {
		curStart = period
	} else {
		curStart = SlotStart(cur)
	}
	pred := cur - 1
	predStart := SlotStart(pred)

	distToPred := offset - predStart
	distToCur := curStart - offset

	chosen, dist := pred, distToPred
	if distToCur < distToPred {
		wrapped := cur
		if wrapped > n {
			wrapped = 1
		}
		chosen, dist = wrapped, distToCur
	}

	predSlot := slotAt(pred)
	if predSlot.IsSweep && distToCur > 1000 {
		chosen, dist = pred, distToPred
	}

	return chosen, dist
}

// Timing returns the expected pulse length, in ticks, for a 3-bit acode.
func Timing(a int) uint32 {
	bit0 := uint32(a & 1)
	bit1 := uint32((a >> 1) & 1)
	bit2 := uint32((a >> 2) & 1)
	return 3000 + 500*bit0 + 1000*bit1 + 2000*bit2 - 250
}
