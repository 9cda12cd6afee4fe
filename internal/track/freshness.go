package track

import "time"

// Freshness keeps the last-seen time per label key and pushes ages to the
// presenter on Tick. Entries only go away through Remove.
type Freshness struct {
	presenter Presenter
	lastSeen  map[string]int64
}

func NewFreshness(p Presenter) *Freshness {
	return &Freshness{presenter: p, lastSeen: make(map[string]int64)}
}

func (f *Freshness) Touch(key string, lastSeen int64) { f.lastSeen[key] = lastSeen }
func (f *Freshness) Remove(key string)                { delete(f.lastSeen, key) }
func (f *Freshness) Len() int                         { return len(f.lastSeen) }

// Age returns whole seconds since key was last seen. Upstream clocks running
// ahead of ours yield 0 rather than a negative age.
func (f *Freshness) Age(key string, now time.Time) (int64, bool) {
	ts, ok := f.lastSeen[key]
	if !ok {
		return 0, false
	}
	age := now.Unix() - ts
	if age < 0 {
		age = 0
	}
	return age, true
}

// Tick pushes the current age of every entry to its label.
func (f *Freshness) Tick(now time.Time) {
	for key := range f.lastSeen {
		age, _ := f.Age(key, now)
		f.presenter.SetAge(key, age)
	}
}
