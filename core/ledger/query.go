package ledger

// Read-only aggregates over ScanAll. None of these take the rewrite lock:
// a query racing a concurrent rewrite may observe the pre-rewrite state.

// IsOpenSession reports whether username has an open record. The match is
// exact and case-sensitive.
func (s *Store) IsOpenSession(username string) (bool, error) {
	entries, err := s.ScanAll()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.OK && entry.Record.Open() && entry.Record.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// OpenSessionCount counts open records.
func (s *Store) OpenSessionCount() (int, error) {
	entries, err := s.ScanAll()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.OK && entry.Record.Open() {
			count++
		}
	}
	return count, nil
}

// OpenSessions returns the open records in file order.
func (s *Store) OpenSessions() ([]Record, error) {
	entries, err := s.ScanAll()
	if err != nil {
		return nil, err
	}
	var open []Record
	for _, entry := range entries {
		if entry.OK && entry.Record.Open() {
			open = append(open, entry.Record)
		}
	}
	return open, nil
}

// TotalMinutes sums the recorded duration of every closed record for
// username. Open records contribute nothing.
func (s *Store) TotalMinutes(username string) (int, error) {
	entries, err := s.ScanAll()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, entry := range entries {
		if entry.OK && !entry.Record.Open() && entry.Record.Username == username {
			total += entry.Record.Minutes
		}
	}
	return total, nil
}
