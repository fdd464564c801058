package automaton

import "hash/fnv"

// Fingerprint returns a stable hash of a's minimized, BFS-canonicalized
// transition table (spec §3: "a content-addressed fingerprint ... the full
// equivalence check is the authoritative tiebreak on fingerprint
// collision"). Two automatons with equal fingerprints are very likely but
// not certainly equivalent; Equals is the only source of truth.
func (a *Automaton) Fingerprint() uint64 {
	m := a.Minimize()
	h := fnv.New64a()
	var write func(b []byte)
	write = func(b []byte) { h.Write(b) }

	for id, s := range m.states {
		write([]byte{byte(id), byte(id >> 8), byte(id >> 16)})
		if s.Accept {
			write([]byte{1})
		} else {
			write([]byte{0})
		}
		for _, e := range s.Trans {
			write([]byte{e.Lo, e.Hi, byte(e.To), byte(e.To >> 8), byte(e.To >> 16)})
		}
	}
	return h.Sum64()
}
