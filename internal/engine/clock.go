package engine

import "time"

// Clock supplies time to the engine.
//
// Sleep is only used for the bounded warm-up pauses before playback. Test
// clocks advance their notion of now instead of blocking.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// WallClock is the real clock.
type WallClock struct{}

// Now returns time.Now().
func (WallClock) Now() time.Time { return time.Now() }

// Sleep calls time.Sleep.
func (WallClock) Sleep(d time.Duration) { time.Sleep(d) }

// seconds returns b - a in fractional seconds.
func seconds(a, b time.Time) float64 {
	return b.Sub(a).Seconds()
}

// offset returns t moved back by s seconds.
func offset(t time.Time, s float64) time.Time {
	return t.Add(-time.Duration(s * float64(time.Second)))
}
