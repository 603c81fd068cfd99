package manager

// ResetShared clears the process-wide Manager so tests can exercise Open.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}
