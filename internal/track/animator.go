package track

import (
	"time"

	"transit-map/internal/geo"
)

type animation struct {
	marker   Marker
	from     geo.Point
	to       geo.Point
	start    time.Time
	duration time.Duration
	onStep   func(geo.Point)
}

func (a *animation) progress(now time.Time) float64 {
	if a.duration <= 0 {
		return 1
	}
	p := float64(now.Sub(a.start)) / float64(a.duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Animator moves markers by linear interpolation, one step per frame. It is
// not safe for concurrent use; the live loop owns it.
type Animator struct {
	presenter Presenter
	tasks     map[string]*animation
}

func NewAnimator(p Presenter) *Animator {
	return &Animator{presenter: p, tasks: make(map[string]*animation)}
}

// Start replaces any in-flight animation for key. from should be the marker's
// current displayed position.
func (a *Animator) Start(key string, m Marker, from, to geo.Point, now time.Time, d time.Duration, onStep func(geo.Point)) {
	a.tasks[key] = &animation{
		marker:   m,
		from:     from,
		to:       to,
		start:    now,
		duration: d,
		onStep:   onStep,
	}
}

func (a *Animator) Cancel(key string) { delete(a.tasks, key) }

// Target returns the destination of the in-flight animation for key.
func (a *Animator) Target(key string) (geo.Point, bool) {
	t, ok := a.tasks[key]
	if !ok {
		return geo.Point{}, false
	}
	return t.to, true
}

func (a *Animator) Active() bool { return len(a.tasks) > 0 }
func (a *Animator) Len() int     { return len(a.tasks) }

// Step advances every animation to now. Finished animations are dropped
// after landing exactly on their target.
func (a *Animator) Step(now time.Time) {
	for key, t := range a.tasks {
		p := t.progress(now)
		pos := geo.Lerp(t.from, t.to, p)
		if p >= 1 {
			pos = t.to
			delete(a.tasks, key)
		}
		a.presenter.SetPosition(t.marker, pos)
		if t.onStep != nil {
			t.onStep(pos)
		}
	}
}
