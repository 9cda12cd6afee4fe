package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-map/internal/geo"
	"transit-map/internal/track"
)

type sent struct {
	subject string
	data    []byte
}

type fakeMetrics struct {
	published, errs, observed int
}

func (f *fakeMetrics) NATSPublishedInc()            { f.published++ }
func (f *fakeMetrics) NATSPublishErrInc()           { f.errs++ }
func (f *fakeMetrics) PublishObserve(time.Duration) { f.observed++ }
func (f *fakeMetrics) NATSSetConnected(bool)        {}

func newTestPresenter(fail error) (*NATSPresenter, *[]sent, *fakeMetrics) {
	var out []sent
	m := &fakeMetrics{}
	p := newPresenter(func(subject string, data []byte) error {
		if fail != nil {
			return fail
		}
		out = append(out, sent{subject, data})
		return nil
	}, "map", false, m, nil)
	p.now = func() time.Time { return time.Unix(1000, 0).UTC() }
	return p, &out, m
}

func TestNATSPresenter_MarkerLifecycle(t *testing.T) {
	p, out, m := newTestPresenter(nil)
	var _ track.Presenter = p

	marker, err := p.CreateMarker("bus", geo.Point{Lat: 38.63, Lon: -90.2}, "bus")
	require.NoError(t, err)
	assert.Equal(t, "bus", marker.Feed)
	assert.Len(t, marker.ID, 36)

	p.SetPosition(marker, geo.Point{Lat: 38.64, Lon: -90.21})
	p.BindPopup(marker, "Route: 70")
	p.SetAge("bus-A", 3)
	p.RemoveMarker(marker)

	require.Len(t, *out, 5)
	subjects := []string{}
	for _, s := range *out {
		subjects = append(subjects, s.subject)
	}
	assert.Equal(t, []string{"map.bus.create", "map.bus.move", "map.bus.popup", "map.age", "map.bus.remove"}, subjects)

	var create MarkerMessage
	require.NoError(t, json.Unmarshal((*out)[0].data, &create))
	assert.Equal(t, marker.ID, create.Marker)
	assert.Equal(t, "bus", create.Icon)
	require.NotNil(t, create.Position)
	assert.Equal(t, 38.63, create.Position.Lat)

	var age AgeMessage
	require.NoError(t, json.Unmarshal((*out)[3].data, &age))
	assert.Equal(t, "bus-A", age.Key)
	assert.Equal(t, int64(3), age.Age)

	var remove map[string]any
	require.NoError(t, json.Unmarshal((*out)[4].data, &remove))
	assert.NotContains(t, remove, "position")

	assert.Equal(t, 5, m.published)
	assert.Equal(t, 5, m.observed)
}

func TestNATSPresenter_CreateFailureIsReturned(t *testing.T) {
	p, _, m := newTestPresenter(errors.New("nats: connection closed"))

	_, err := p.CreateMarker("train", geo.Point{}, "train")
	require.Error(t, err)
	assert.Equal(t, 1, m.errs)

	// other commands only log
	p.SetAge("train-X", 1)
	assert.Equal(t, 2, m.errs)
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "metro_link", subjectToken(" metro.link "))
	assert.Equal(t, "_", subjectToken(""))
	assert.Equal(t, "a_b_c", subjectToken("a>b*c"))
}
