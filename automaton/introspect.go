package automaton

// StateAccepts reports whether state id of a is accepting. Exposed for
// callers (package ssv's sample-string search) that need to walk an
// Automaton's structure without package automaton re-exporting State
// itself.
func StateAccepts(a *Automaton, id int) bool { return a.states[id].Accept }

// StateEdges returns the outgoing edges of state id of a.
func StateEdges(a *Automaton, id int) []Edge { return a.states[id].Trans }
