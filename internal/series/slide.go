package series

import "time"

// Slide is the retained-window alternative to Normalize. Once a window
// holds data it is never rebuilt: only readings newer than the newest held
// slot (and not newer than the anchor for ref) are appended, one slot per
// minute, and the oldest slots are trimmed to keep at most window
// elements. An empty window is seeded with Normalize.
//
// held is not modified.
func Slide(held []Slot, samples []RawSample, ref time.Time, opts ...Option) []Slot {
	if len(held) == 0 {
		return Normalize(samples, ref, opts...)
	}
	o := newOptions(opts)
	anchor := Anchor(ref, o.skew)
	newest := held[len(held)-1].Timestamp

	var fresh []Reading
	index := make(map[int64]int)
	for _, r := range Parse(samples) {
		if !r.Minute.After(newest) || r.Minute.After(anchor) {
			continue
		}
		key := r.Minute.Unix()
		if i, ok := index[key]; ok {
			fresh[i] = r
			continue
		}
		index[key] = len(fresh)
		fresh = append(fresh, r)
	}

	out := make([]Slot, 0, len(held)+len(fresh))
	out = append(out, held...)
	for _, r := range fresh {
		out = append(out, r.slot())
	}
	if len(out) > o.window {
		out = append([]Slot(nil), out[len(out)-o.window:]...)
	}
	return out
}
