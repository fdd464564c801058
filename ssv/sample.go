package ssv

import "github.com/christiankrug/sanitizer-checker/automaton"

type bfsStep struct {
	via  byte
	from int
}

// sampleFrom returns the shortest string accepted by a via BFS over states,
// or ok=false if a accepts nothing.
func sampleFrom(a *automaton.Automaton) (string, bool) {
	visited := map[int]bool{a.Start(): true}
	parent := map[int]bfsStep{}
	queue := []int{a.Start()}

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		if automaton.StateAccepts(a, cur) {
			return reconstruct(parent, cur), true
		}
		for _, e := range automaton.StateEdges(a, cur) {
			if !visited[e.To] {
				visited[e.To] = true
				parent[e.To] = bfsStep{via: e.Lo, from: cur}
				queue = append(queue, e.To)
			}
		}
	}
	return "", false
}

func reconstruct(parent map[int]bfsStep, end int) string {
	var rev []byte
	cur := end
	for {
		st, ok := parent[cur]
		if !ok {
			break
		}
		rev = append(rev, st.via)
		cur = st.from
	}
	out := make([]byte, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	return string(out)
}
