package offlinecache

import "fmt"

type CacheStatusStatus string

const (
	CacheStatusHit = "hit"
	CacheStatusFwd = "fwd"
)

type CacheStatusFwdReason string

const (
	// The origin was reachable and answered; its response was passed
	// through without consulting the store.
	FwdReasonLive CacheStatusFwdReason = "live"

	// The origin was unreachable and the store contained no snapshot
	// matching the request.
	FwdReasonMiss CacheStatusFwdReason = "miss"
)

type CacheStatus struct {
	status    CacheStatusStatus
	detail    string
	fwdReason CacheStatusFwdReason
}

func (cs *CacheStatus) Hit() {
	cs.status = CacheStatusHit
}

func (cs *CacheStatus) Forward(reason CacheStatusFwdReason) {
	cs.status = CacheStatusFwd
	cs.fwdReason = reason
}

func (cs *CacheStatus) Detail(detail string) {
	cs.detail = detail
}

func (cs *CacheStatus) IsHit() bool {
	return cs.status == CacheStatusHit
}

func (cs *CacheStatus) String() string {
	status := fmt.Sprintf("Offline-Cache; %s", cs.status)
	if cs.status == CacheStatusFwd && cs.fwdReason != "" {
		status = fmt.Sprintf("%s=%s", status, cs.fwdReason)
	}
	if cs.detail != "" {
		status = status + "; detail=" + cs.detail
	}
	return status
}
