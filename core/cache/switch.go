package cache

import "sync/atomic"

// Switch turns read visibility of one or more caches on and off at once.
// The zero value is active. Writes are recorded either way, so
// reactivating makes surviving entries visible again.
type Switch struct {
	off atomic.Bool
}

func NewSwitch() *Switch { return &Switch{} }

func (s *Switch) Activate()      { s.off.Store(false) }
func (s *Switch) Deactivate()    { s.off.Store(true) }
func (s *Switch) IsActive() bool { return !s.off.Load() }
