package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/serial"
	"github.com/danmuck/irlink/internal/testutil/serialtest"
	"github.com/danmuck/irlink/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func newSerialServer(t *testing.T, steps ...serialtest.Step) (*Server, *serialtest.Port) {
	t.Helper()
	port := serialtest.NewPort(nil, steps...)
	opener := serialtest.NewOpener()
	opener.Register("/dev/ttyIR0", port)
	h := comm.NewHandler(comm.WithSerialOptions(serial.WithOpener(opener.Open)))
	h.SelectSerial("/dev/ttyIR0")
	if err := h.Enable(context.Background()); err != nil {
		t.Fatalf("enable: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return New("irlink-test", ":0", h, nil), port
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
}

func TestHealthAndRooms(t *testing.T) {
	testlog.Start(t)
	s := New("irlink-test", ":0", nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
	var health map[string]any
	decodeBody(t, rec, &health)
	if health["status"] != "ok" || health["service"] != "irlink-test" {
		t.Fatalf("unexpected health body: %v", health)
	}

	rec = doRequest(t, s, http.MethodGet, "/rooms", nil)
	var rooms struct {
		Rooms []string `json:"rooms"`
	}
	decodeBody(t, rec, &rooms)
	if diff := cmp.Diff(comm.ListRooms(), rooms.Rooms); diff != "" {
		t.Fatalf("rooms mismatch (-want +got):\n%s", diff)
	}
}

func TestPortsSortedWithDescriptions(t *testing.T) {
	testlog.Start(t)
	s := New("irlink-test", ":0", nil, nil)
	s.listPorts = func() (map[string]string, error) {
		return map[string]string{"/dev/ttyUSB1": "IR Toy", "/dev/ttyS0": ""}, nil
	}

	rec := doRequest(t, s, http.MethodGet, "/ports", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ports status=%d", rec.Code)
	}
	var body struct {
		Ports []portInfo `json:"ports"`
	}
	decodeBody(t, rec, &body)
	want := []portInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB1", Description: "IR Toy"},
	}
	if diff := cmp.Diff(want, body.Ports); diff != "" {
		t.Fatalf("ports mismatch (-want +got):\n%s", diff)
	}

	s.listPorts = func() (map[string]string, error) {
		return nil, serial.ErrEnumerate
	}
	if rec := doRequest(t, s, http.MethodGet, "/ports", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on enumeration failure, got %d", rec.Code)
	}
}

func TestChannelReportsActiveSelection(t *testing.T) {
	testlog.Start(t)
	s := New("irlink-test", ":0", nil, nil)
	rec := doRequest(t, s, http.MethodGet, "/channel", nil)
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["kind"] != "disabled" {
		t.Fatalf("unexpected channel body: %v", body)
	}

	s, _ = newSerialServer(t)
	rec = doRequest(t, s, http.MethodGet, "/channel", nil)
	decodeBody(t, rec, &body)
	if body["kind"] != "serial" || body["target"] != "/dev/ttyIR0" {
		t.Fatalf("unexpected channel body: %v", body)
	}
}

func TestSendWritesFrame(t *testing.T) {
	testlog.Start(t)
	s, port := newSerialServer(t)

	rec := doRequest(t, s, http.MethodPost, "/send", []byte{0x41, 0x42})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status=%d body=%s", rec.Code, rec.Body.String())
	}
	if want := []byte{0x02, 0x41, 0x42}; !bytes.Equal(port.Written(), want) {
		t.Fatalf("wire mismatch: got=%v want=%v", port.Written(), want)
	}
}

func TestSendRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	s, port := newSerialServer(t)

	rec := doRequest(t, s, http.MethodPost, "/send", bytes.Repeat([]byte{0x01}, 300))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if port.Writes() != 0 {
		t.Fatalf("oversized payload must not reach the wire")
	}
}

func TestSendSurfacesIOError(t *testing.T) {
	testlog.Start(t)
	s, port := newSerialServer(t)
	port.WriteErr = errors.New("unplugged")

	rec := doRequest(t, s, http.MethodPost, "/send", []byte("ir"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unplugged") {
		t.Fatalf("expected cause in body: %s", rec.Body.String())
	}
}

func TestReceiveLoopRecordsFrames(t *testing.T) {
	testlog.Start(t)
	s, _ := newSerialServer(t, serialtest.Step{Data: []byte{0x02, 0x41, 0x42}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ReceiveLoop(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Recent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("receive loop: %v", err)
	}

	frames := s.Recent()
	if len(frames) != 1 || frames[0].Payload != "4142" || frames[0].Channel != "serial" {
		t.Fatalf("unexpected frames: %+v", frames)
	}

	rec := doRequest(t, s, http.MethodGet, "/frames", nil)
	var body struct {
		Frames []Frame `json:"frames"`
	}
	decodeBody(t, rec, &body)
	if len(body.Frames) != 1 {
		t.Fatalf("expected one frame over http, got %d", len(body.Frames))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	s := New("irlink-test", ":0", nil, nil)
	doRequest(t, s, http.MethodGet, "/health", nil)

	rec := doRequest(t, s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "irlink_http_requests_total") {
		t.Fatalf("expected http request counter in scrape")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	s := New("irlink-test", "127.0.0.1:0", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
