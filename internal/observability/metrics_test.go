package observability

import (
	"testing"
	"time"

	"github.com/danmuck/irlink/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("irlinkctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordFrameSent("serial", 3)
	RecordFrameReceived("serial", 2)
	RecordLinkError("network", "send")
}

func TestFrameDiscardCounter(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(framesDiscarded.WithLabelValues("rendezvous", "timeout"))
	RecordFrameDiscarded("rendezvous", "timeout")
	RecordFrameDiscarded("rendezvous", "timeout")
	after := testutil.ToFloat64(framesDiscarded.WithLabelValues("rendezvous", "timeout"))
	if after-before != 2 {
		t.Fatalf("unexpected discard delta: got=%v want=2", after-before)
	}
}
