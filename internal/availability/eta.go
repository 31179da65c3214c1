package availability

import "time"

// SegmentAt returns the segment containing minute.
func SegmentAt(segments []Segment, minute int) (Segment, bool) {
	for _, seg := range segments {
		if seg.Contains(minute) {
			return seg, true
		}
	}
	return Segment{}, false
}

// ClosingETA returns the minutes left until the open segment containing now ends.
// It reports false when now is not inside an open segment.
func ClosingETA(segments []Segment, now time.Time) (int, bool) {
	minute := MinuteOfDay(now)
	seg, ok := SegmentAt(segments, minute)
	if !ok || !seg.Open {
		return 0, false
	}
	return seg.EndMinute - minute, true
}

// OpeningETA returns the minutes until the next open segment starts later the
// same day. It reports false while open or when nothing opens before midnight.
func OpeningETA(segments []Segment, now time.Time) (int, bool) {
	minute := MinuteOfDay(now)
	for _, seg := range segments {
		if !seg.Open || seg.EndMinute <= minute {
			continue
		}
		if seg.StartMinute <= minute {
			return 0, false
		}
		return seg.StartMinute - minute, true
	}
	return 0, false
}
