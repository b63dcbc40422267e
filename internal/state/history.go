package state

// visitsOf lists the visits moment i records, all at its turn.
func (s *State) visitsOf(i int) []visit {
	m := s.momentAt(i)
	t := s.turnOf(i)
	out := make([]visit, 0, len(m.MockVisits)+len(m.Visits)+1)
	for _, name := range m.MockVisits {
		out = append(out, visit{name, t})
	}
	for _, name := range m.Visits {
		out = append(out, visit{name, t})
	}
	return append(out, visit{m.Passage, t})
}

func (s *State) rebuildHistory() {
	s.history = s.history[:0]
	for i := 0; i <= s.recent; i++ {
		s.history = append(s.history, s.visitsOf(i)...)
	}
}

// boundary is the turn before which visits are forgotten.
func (s *State) boundary() int {
	b := s.present.ForgetVisits
	for i := 0; i <= s.recent; i++ {
		b = max(b, s.timeline[i].ForgetVisits)
	}
	return b
}

// History lists the passages visited before the present turn, oldest first,
// leaving out forgotten turns.
func (s *State) History() []string {
	b := s.boundary()
	var out []string
	for _, v := range s.history {
		if v.turn >= b {
			out = append(out, v.name)
		}
	}
	return out
}

// Visits counts the visits to name, the present one included.
func (s *State) Visits(name string) int {
	n := 0
	for _, h := range s.History() {
		if h == name {
			n++
		}
	}
	for _, v := range s.visitsOf(s.recent + 1) {
		if v.name == name {
			n++
		}
	}
	return n
}
