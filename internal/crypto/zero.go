package crypto

// Zero overwrites a byte slice in memory with zeros. Best-effort only: the
// Go runtime may already have copied the bytes during slice growth or stack
// moves, so this shrinks the exposure window rather than closing it.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
