//go:build !linux && !darwin && !windows && !freebsd

package clip

// New returns a no-op backend on platforms without clipboard support.
func New() Backend { return NewHeadless() }
