package track

import (
	"fmt"
	"sync"

	"transit-map/internal/geo"
)

// MemoryMarker is the state of a marker held by MemoryPresenter.
type MemoryMarker struct {
	Feed    string
	Icon    string
	Path    []geo.Point // every position set, creation included
	Popup   string
	Removed bool
}

func (m *MemoryMarker) Position() geo.Point { return m.Path[len(m.Path)-1] }

// MemoryPresenter keeps markers in memory and records every position it was
// given, for tests.
type MemoryPresenter struct {
	mu      sync.Mutex
	seq     int
	markers map[Marker]*MemoryMarker
	ages    map[string]int64
}

func NewMemoryPresenter() *MemoryPresenter {
	return &MemoryPresenter{
		markers: make(map[Marker]*MemoryMarker),
		ages:    make(map[string]int64),
	}
}

func (p *MemoryPresenter) CreateMarker(feed string, pos geo.Point, icon string) (Marker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	m := Marker{Feed: feed, ID: fmt.Sprintf("m%d", p.seq)}
	p.markers[m] = &MemoryMarker{Feed: feed, Icon: icon, Path: []geo.Point{pos}}
	return m, nil
}

func (p *MemoryPresenter) SetPosition(m Marker, pos geo.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mm, ok := p.markers[m]; ok && !mm.Removed {
		mm.Path = append(mm.Path, pos)
	}
}

func (p *MemoryPresenter) BindPopup(m Marker, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mm, ok := p.markers[m]; ok {
		mm.Popup = html
	}
}

func (p *MemoryPresenter) RemoveMarker(m Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mm, ok := p.markers[m]; ok {
		mm.Removed = true
	}
}

func (p *MemoryPresenter) SetAge(key string, seconds int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ages[key] = seconds
}

// Marker returns a copy of the marker state.
func (p *MemoryPresenter) Marker(m Marker) (MemoryMarker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mm, ok := p.markers[m]
	if !ok {
		return MemoryMarker{}, false
	}
	cp := *mm
	cp.Path = append([]geo.Point(nil), mm.Path...)
	return cp, true
}

// Visible counts markers that have not been removed.
func (p *MemoryPresenter) Visible() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, mm := range p.markers {
		if !mm.Removed {
			n++
		}
	}
	return n
}

func (p *MemoryPresenter) Age(key string) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.ages[key]
	return v, ok
}
