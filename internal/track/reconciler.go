package track

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"transit-map/internal/feed"
	"transit-map/internal/geo"
)

// Entity is a tracked vehicle and its on-screen marker.
type Entity struct {
	ID        string
	Position  geo.Point // displayed position, moved by the animator
	Target    geo.Point // last reported position
	Timestamp int64
	Marker    Marker
	Popup     string
}

type Options struct {
	Feed              string
	Icon              string
	JumpThreshold     float64 // meters; displacements at or above snap
	AnimationDuration time.Duration
	Routes            RouteNamer
	Logger            *zap.Logger
}

// Result summarizes one reconciliation pass.
type Result struct {
	Created   int
	Animated  int
	Snapped   int
	Unchanged int
	Removed   int
	Skipped   int
	Failed    int
}

// Reconciler owns the entity table for one feed. Like Animator and
// Freshness it must only be used from a single goroutine.
type Reconciler struct {
	opts      Options
	presenter Presenter
	animator  *Animator
	freshness *Freshness
	logger    *zap.Logger
	entities  map[string]*Entity
}

func NewReconciler(opts Options, p Presenter, a *Animator, f *Freshness) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Icon == "" {
		opts.Icon = opts.Feed
	}
	return &Reconciler{
		opts:      opts,
		presenter: p,
		animator:  a,
		freshness: f,
		logger:    logger.With(zap.String("feed", opts.Feed)),
		entities:  make(map[string]*Entity),
	}
}

func (r *Reconciler) Feed() string { return r.opts.Feed }
func (r *Reconciler) Len() int     { return len(r.entities) }

// Entity returns a copy of the tracked entity with the given id.
func (r *Reconciler) Entity(id string) (Entity, bool) {
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// IDs returns the tracked identifiers in sorted order.
func (r *Reconciler) IDs() []string {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reconcile applies a full snapshot: records create or move entities, and
// every entity missing from the snapshot is removed.
func (r *Reconciler) Reconcile(now time.Time, snap feed.Snapshot) Result {
	var res Result
	seen := make(map[string]struct{}, len(snap.Records))

	for _, rec := range snap.Records {
		if rec.ID == "" || rec.Position == nil {
			res.Skipped++
			continue
		}
		pos := *rec.Position
		e, ok := r.entities[rec.ID]
		if !ok {
			if err := r.create(rec, pos); err != nil {
				r.logger.Warn("create marker failed", zap.String("id", rec.ID), zap.Error(err))
				res.Failed++
				continue
			}
			seen[rec.ID] = struct{}{}
			res.Created++
			continue
		}
		seen[rec.ID] = struct{}{}

		switch r.move(now, e, pos) {
		case moveAnimated:
			res.Animated++
		case moveSnapped:
			res.Snapped++
		default:
			res.Unchanged++
		}
		if popup := renderPopup(r.opts.Feed, rec, r.opts.Routes); popup != e.Popup {
			r.presenter.BindPopup(e.Marker, popup)
			e.Popup = popup
		}
		e.Timestamp = rec.Timestamp
		r.freshness.Touch(r.key(e.ID), rec.Timestamp)
	}

	for id, e := range r.entities {
		if _, ok := seen[id]; ok {
			continue
		}
		r.remove(e)
		res.Removed++
	}
	return res
}

func (r *Reconciler) key(id string) string { return FreshnessKey(r.opts.Feed, id) }

func (r *Reconciler) create(rec feed.Record, pos geo.Point) error {
	m, err := r.presenter.CreateMarker(r.opts.Feed, pos, r.opts.Icon)
	if err != nil {
		return err
	}
	e := &Entity{
		ID:        rec.ID,
		Position:  pos,
		Target:    pos,
		Timestamp: rec.Timestamp,
		Marker:    m,
		Popup:     renderPopup(r.opts.Feed, rec, r.opts.Routes),
	}
	r.presenter.BindPopup(m, e.Popup)
	r.entities[e.ID] = e
	r.freshness.Touch(r.key(e.ID), rec.Timestamp)
	r.logger.Debug("tracking vehicle", zap.String("id", e.ID), zap.Float64("lat", pos.Lat), zap.Float64("lon", pos.Lon))
	return nil
}

type moveKind int

const (
	moveNone moveKind = iota
	moveAnimated
	moveSnapped
)

func (r *Reconciler) move(now time.Time, e *Entity, pos geo.Point) moveKind {
	key := r.key(e.ID)
	e.Target = pos

	if target, ok := r.animator.Target(key); ok && target == pos {
		return moveNone
	}
	if e.Position == pos {
		r.animator.Cancel(key)
		return moveNone
	}

	dist := geo.Distance(e.Position, pos)
	if dist >= r.opts.JumpThreshold {
		r.animator.Cancel(key)
		e.Position = pos
		r.presenter.SetPosition(e.Marker, pos)
		r.logger.Debug("vehicle jumped", zap.String("id", e.ID), zap.Float64("meters", dist))
		return moveSnapped
	}

	r.animator.Start(key, e.Marker, e.Position, pos, now, r.opts.AnimationDuration, func(p geo.Point) {
		e.Position = p
	})
	return moveAnimated
}

func (r *Reconciler) remove(e *Entity) {
	key := r.key(e.ID)
	r.animator.Cancel(key)
	r.presenter.RemoveMarker(e.Marker)
	r.freshness.Remove(key)
	delete(r.entities, e.ID)
	r.logger.Debug("vehicle gone", zap.String("id", e.ID))
}
