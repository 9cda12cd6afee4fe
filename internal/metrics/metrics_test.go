package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_StaticGauges(t *testing.T) {
	c := NewCollector([]FeedSettings{
		{Name: "bus", PollInterval: 5 * time.Second, JumpThreshold: 800},
		{Name: "train", PollInterval: 15 * time.Second, JumpThreshold: 2000},
	}, time.Second)

	body := scrape(t, c)
	assert.Contains(t, body, `transitmap_poll_interval_seconds{feed="bus"} 5`)
	assert.Contains(t, body, `transitmap_poll_interval_seconds{feed="train"} 15`)
	assert.Contains(t, body, `transitmap_jump_threshold_meters{feed="train"} 2000`)
	assert.Contains(t, body, "transitmap_freshness_interval_seconds 1")
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestHandler_ExposesMetrics(t *testing.T) {
	c := NewCollector(nil, time.Second)
	c.FetchErrors.WithLabelValues("bus", "network").Inc()
	c.TrackedEntities.WithLabelValues("bus").Set(3)

	body := scrape(t, c)
	assert.True(t, strings.Contains(body, `transitmap_fetch_errors_total{feed="bus",kind="network"} 1`), body)
	assert.Contains(t, body, `transitmap_tracked_entities{feed="bus"} 3`)
}
