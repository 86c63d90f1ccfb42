package channel

import (
	"context"
	"testing"

	"github.com/danmuck/irlink/internal/serial"
	"github.com/danmuck/irlink/internal/testutil/serialtest"
	"github.com/danmuck/irlink/internal/testutil/testlog"
)

func TestDisabledIsAlwaysNoOp(t *testing.T) {
	testlog.Start(t)
	var ch Channel = Disabled{}
	ctx := context.Background()
	if ch.Enabled() {
		t.Fatalf("disabled channel never reports enabled")
	}

	if err := ch.Enable(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := ch.Send(make([]byte, 1024)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if payload, ok, err := ch.Receive(ctx); payload != nil || ok || err != nil {
		t.Fatalf("receive: ok=%v payload=%v err=%v", ok, payload, err)
	}
	for i := 0; i < 2; i++ {
		if err := ch.Disable(); err != nil {
			t.Fatalf("disable #%d: %v", i, err)
		}
	}
}

func TestKindAndDescribe(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		ch       Channel
		kind     string
		describe string
	}{
		{Disabled{}, "disabled", ""},
		{NewSerial("/dev/ttyUSB0"), "serial", "/dev/ttyUSB0"},
		{NewRendezvous("Room B"), "rendezvous", "Room B"},
		{NewNetwork(7000, "10.0.0.5", 7001, 0), "network", "10.0.0.5:7001"},
	}
	for _, tc := range cases {
		if got := tc.ch.Kind().String(); got != tc.kind {
			t.Fatalf("kind got=%q want=%q", got, tc.kind)
		}
		if got := Describe(tc.ch); got != tc.describe {
			t.Fatalf("describe got=%q want=%q", got, tc.describe)
		}
	}
	if got := Kind(42).String(); got != "unknown" {
		t.Fatalf("unexpected kind string: %q", got)
	}
}

func TestSerialVariantDelegates(t *testing.T) {
	testlog.Start(t)
	port := serialtest.NewPort(nil, serialtest.Step{Data: []byte{0x01, 0x7F}})
	opener := serialtest.NewOpener()
	opener.Register("/dev/ttyIR1", port)
	ch := NewSerial("/dev/ttyIR1", serial.WithOpener(opener.Open))
	ctx := context.Background()

	if ch.Enabled() {
		t.Fatalf("serial channel should start disabled")
	}
	if err := ch.Enable(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !ch.Enabled() {
		t.Fatalf("serial channel should report enabled")
	}
	payload, ok, err := ch.Receive(ctx)
	if err != nil || !ok || len(payload) != 1 || payload[0] != 0x7F {
		t.Fatalf("receive: ok=%v payload=%v err=%v", ok, payload, err)
	}
	if err := ch.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !port.Closed() || ch.Enabled() {
		t.Fatalf("disable should close the device")
	}
}
