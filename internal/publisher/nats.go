package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"transit-map/internal/geo"
	"transit-map/internal/track"
)

// NATSPresenter drives a remote map by publishing marker commands. A browser
// client subscribes to <prefix>.> over the NATS websocket gateway.
type NATSPresenter struct {
	nc          *nats.Conn
	publish     func(subject string, data []byte) error
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	logger      *zap.Logger
	now         func() time.Time
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPresenter(url, prefix string, logSubjects bool, m PublisherMetrics, logger *zap.Logger) (*NATSPresenter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("transit-map"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPresenter(nc.Publish, prefix, logSubjects, m, logger)
	p.nc = nc
	return p, nil
}

func newPresenter(publish func(string, []byte) error, prefix string, logSubjects bool, m PublisherMetrics, logger *zap.Logger) *NATSPresenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPresenter{
		publish:     publish,
		prefix:      subjectToken(prefix),
		logSubjects: logSubjects,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

func (p *NATSPresenter) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// MarkerMessage is the payload of every marker command.
type MarkerMessage struct {
	Marker    string     `json:"marker"`
	Feed      string     `json:"feed"`
	Position  *geo.Point `json:"position,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	HTML      string     `json:"html,omitempty"`
	Timestamp time.Time  `json:"ts"`
}

// AgeMessage updates a freshness label.
type AgeMessage struct {
	Key       string    `json:"key"`
	Age       int64     `json:"age"`
	Timestamp time.Time `json:"ts"`
}

func (p *NATSPresenter) CreateMarker(feed string, pos geo.Point, icon string) (track.Marker, error) {
	m := track.Marker{Feed: feed, ID: uuid.NewString()}
	err := p.send(p.markerSubject(feed, "create"), MarkerMessage{
		Marker: m.ID, Feed: feed, Position: &pos, Icon: icon, Timestamp: p.now(),
	})
	if err != nil {
		return track.Marker{}, fmt.Errorf("create marker: %w", err)
	}
	return m, nil
}

func (p *NATSPresenter) SetPosition(m track.Marker, pos geo.Point) {
	p.sendLogged(p.markerSubject(m.Feed, "move"), MarkerMessage{
		Marker: m.ID, Feed: m.Feed, Position: &pos, Timestamp: p.now(),
	})
}

func (p *NATSPresenter) BindPopup(m track.Marker, html string) {
	p.sendLogged(p.markerSubject(m.Feed, "popup"), MarkerMessage{
		Marker: m.ID, Feed: m.Feed, HTML: html, Timestamp: p.now(),
	})
}

func (p *NATSPresenter) RemoveMarker(m track.Marker) {
	p.sendLogged(p.markerSubject(m.Feed, "remove"), MarkerMessage{
		Marker: m.ID, Feed: m.Feed, Timestamp: p.now(),
	})
}

func (p *NATSPresenter) SetAge(key string, seconds int64) {
	p.sendLogged(p.prefix+".age", AgeMessage{Key: key, Age: seconds, Timestamp: p.now()})
}

func (p *NATSPresenter) markerSubject(feed, event string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(feed), event)
}

func (p *NATSPresenter) sendLogged(subject string, msg any) {
	if err := p.send(subject, msg); err != nil {
		p.logger.Warn("nats publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (p *NATSPresenter) send(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.Debug("nats publish", zap.String("subject", subject))
	}
	start := time.Now()
	err = p.publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
