package batch

import "time"

func SetClock(j *OverdueReminderJob, now func() time.Time) {
	j.now = now
}
