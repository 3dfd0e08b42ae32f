package memory

import "time"

// Clock supplies the store's notion of now. The default uses time.Now;
// inject a fake in tests to exercise TTL behavior without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
