// README: Clock abstraction so journey and ledger timestamps are testable.
package clock

import "time"

// Clock provides time to the application.
type Clock interface {
	Now() time.Time
}

// System returns the current wall-clock time in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns T. Tests advance it by reassigning T.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }
