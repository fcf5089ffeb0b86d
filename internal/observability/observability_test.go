package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObservePoll()
	m.ObservePoll()
	m.ObserveFrameSent(time.Unix(1700000000, 0))
	m.ObserveWriteFailure()
	m.ObserveSuppressed()
	m.ObserveSourceDegraded("live")
	m.ObserveSourceDegraded("live")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sourceDegraded.WithLabelValues("live")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastTransmit))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePoll()
		m.ObserveFrameSent(time.Now())
		m.ObserveWriteFailure()
		m.ObserveSuppressed()
		m.ObserveSourceDegraded("snapshot")
	})
}

func TestStatusBoard(t *testing.T) {
	board := NewStatusBoard()
	board.Set(StatusBackend, "live")
	board.Increment(StatusFramesSent)
	board.Increment(StatusFramesSent)

	v, ok := board.Get(StatusBackend)
	require.True(t, ok)
	assert.Equal(t, "live", v)

	n, _ := board.Get(StatusFramesSent)
	assert.Equal(t, 2, n)

	data, err := json.Marshal(board)
	require.NoError(t, err)
	assert.JSONEq(t, `{"backend":"live","frames_sent":2}`, string(data))
}

func TestStatusBoard_ConcurrentIncrement(t *testing.T) {
	board := NewStatusBoard()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				board.Increment(StatusWriteFailures)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	n, _ := board.Get(StatusWriteFailures)
	assert.Equal(t, 1000, n)
}

func TestStatusServer_Router(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObservePoll()

	board := NewStatusBoard()
	board.Set(StatusPort, "/dev/ttyAMA0")

	server := NewStatusServer(":0", reg, board, zerolog.Nop())
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"port":"/dev/ttyAMA0"}`, string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "bridge_polls_total 1")
}

func TestStatusServer_StartStop(t *testing.T) {
	server := NewStatusServer("127.0.0.1:0", prometheus.NewRegistry(), NewStatusBoard(), zerolog.Nop())

	require.NoError(t, server.Start())
	assert.Error(t, server.Start())

	resp, err := http.Get(fmt.Sprintf("http://%s/status", server.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, server.Stop())
	assert.Error(t, server.Stop())
}
