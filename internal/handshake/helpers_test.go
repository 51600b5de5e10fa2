package handshake

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/ble/bletest"
	"github.com/chaz8081/gatt-welcome/internal/config"
	"github.com/chaz8081/gatt-welcome/internal/logging"
	"github.com/chaz8081/gatt-welcome/internal/trace"
)

const (
	testSvcUUID  = "12345678-1234-5678-1234-56789abcdef0"
	testCharUUID = "abcdefab-1234-5678-1234-56789abcdef0"
	targetAddr   = "AA:BB:CC:DD:EE:FF"
	localAddr    = "00:11:22:33:44:55"
)

var localAdapter = ble.AdapterInfo{ID: "hci0", Address: localAddr, Powered: true}

// testConfig returns a validated config with durations scaled down so that
// the server's 30 x 1s wait becomes 30 x 10ms.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Client.ScanDuration = 10 * time.Millisecond
	cfg.Server.ScanDuration = 5 * time.Millisecond
	cfg.Server.WaitTimeout = 300 * time.Millisecond
	cfg.Server.PollInterval = 10 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

// syncBuffer is a bytes.Buffer safe for the transport's callback goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// memRecorder keeps trace events in memory.
type memRecorder struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *memRecorder) Record(ev trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *memRecorder) Events() []trace.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trace.Event(nil), r.events...)
}

type harness struct {
	out *syncBuffer
	rec *memRecorder
}

func newHarness() *harness {
	return &harness{out: &syncBuffer{}, rec: &memRecorder{}}
}

func (h *harness) options() Options {
	return Options{
		Logger:    logging.New(h.out, slog.LevelDebug),
		Recorder:  h.rec,
		SessionID: "test-session",
	}
}

// welcomeService is the service the server looks for.
func welcomeService(caps ble.Capability) ble.Service {
	return bletest.Service(testSvcUUID, bletest.Char(testCharUUID, caps))
}

func requireTerminalPath(t *testing.T, res Result) {
	t.Helper()
	require.NotEmpty(t, res.Path)
	require.Equal(t, StateIdle, res.Path[0])
	require.Equal(t, StateTerminal, res.Path[len(res.Path)-1])
}
