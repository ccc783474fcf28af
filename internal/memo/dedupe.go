package memo

// Dedupe collapses candidates sharing an identity key, keeping the first
// occurrence in slice order. Callers pass the batch oldest-first so that
// "first seen wins" is deterministic across runs.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		k := c.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// KeySet builds the set of identity keys covered by the given memos.
func KeySet(memos []Memo) map[string]struct{} {
	set := make(map[string]struct{}, len(memos))
	for _, m := range memos {
		set[m.Key()] = struct{}{}
	}
	return set
}
