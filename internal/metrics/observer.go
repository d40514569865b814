package metrics

// CacheObserver receives lookup cache events per region.
type CacheObserver interface {
	RecordHit(region string)
	RecordMiss(region string)
	RecordInvalidation(region string)
}

// AuditObserver receives audit log write outcomes per action.
type AuditObserver interface {
	RecordAppend(action string)
	RecordFailure(action string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordHit(string)          {}
func (Nop) RecordMiss(string)         {}
func (Nop) RecordInvalidation(string) {}
func (Nop) RecordAppend(string)       {}
func (Nop) RecordFailure(string)      {}
