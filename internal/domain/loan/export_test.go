package loan

import "time"

// SetClock replaces the service clock so tests can control due dates.
func SetClock(svc Service, now func() time.Time) {
	svc.(*serviceImpl).now = now
}
