package observ

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmitsOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Log("test_event", map[string]any{"symbol": "AAPL", "count": 3})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "test_event", line["event"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, float64(3), line["count"])
	assert.NotEmpty(t, line["ts"])
}

func TestCounterWithLabels(t *testing.T) {
	labels := map[string]string{"provider": "test_counter_labels"}
	before := CounterValue("observ_test_total", labels)

	IncCounter("observ_test_total", labels)
	IncCounter("observ_test_total", labels)

	assert.Equal(t, before+2, CounterValue("observ_test_total", labels))
}

func TestCanonLabelsIsOrderStable(t *testing.T) {
	a := canonLabels(map[string]string{"b": "2", "a": "1"})
	b := canonLabels(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "a=1,b=2", a)
	assert.Equal(t, a, b)
}

func TestMetricsHandlerDumpsRegistry(t *testing.T) {
	IncCounter("observ_handler_total", nil)
	SetGauge("observ_gauge", 1.5, nil)
	RecordDuration("observ_dur", 42*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	var dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dump))
	assert.GreaterOrEqual(t, dump.Counters["observ_handler_total"][""], int64(1))
	assert.Equal(t, 1.5, dump.Gauges["observ_gauge"][""])
	assert.Contains(t, dump.Hist, "observ_dur_ms")
}
