package pipeline

// Deduplicate removes readings that share an identity key, keeping exactly one
// per key. The kept reading is the last occurrence in batch order; the output
// slot for a key is fixed by its first occurrence, so the relative order of
// kept elements is preserved. Returns the deduplicated sequence and the number
// of removed duplicates.
func Deduplicate(readings []Reading) ([]Reading, int) {
	if len(readings) == 0 {
		return nil, 0
	}

	out := make([]Reading, 0, len(readings))
	slots := make(map[identityKey]int, len(readings))
	removed := 0

	for _, r := range readings {
		key := keyOf(r)
		if idx, seen := slots[key]; seen {
			// Last write wins: later batch position replaces the kept value.
			out[idx] = r
			removed++
			continue
		}
		slots[key] = len(out)
		out = append(out, r)
	}

	return out, removed
}
