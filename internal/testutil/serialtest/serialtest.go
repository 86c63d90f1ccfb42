// Package serialtest provides scripted serial ports for link tests.
package serialtest

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/irlink/internal/serial"
	"github.com/jonboulle/clockwork"
)

// Step is one scripted Read result. Advance moves the fake clock before the
// read returns; empty Data models a poll that saw no pending bytes.
type Step struct {
	Advance time.Duration
	Data    []byte
	Err     error
}

// Port replays Steps from Read and records everything written to it. Once the
// script is exhausted every Read advances the clock by IdleAdvance and
// returns no data.
type Port struct {
	mu          sync.Mutex
	clock       clockwork.FakeClock
	steps       []Step
	pending     []byte
	IdleAdvance time.Duration

	written  bytes.Buffer
	writes   int
	drains   int
	closed   bool
	reads    int
	WriteErr error
	DrainErr error
	CloseErr error
}

func NewPort(clock clockwork.FakeClock, steps ...Step) *Port {
	return &Port{clock: clock, steps: steps, IdleAdvance: time.Millisecond}
}

func (p *Port) Push(steps ...Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, steps...)
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if p.closed {
		return 0, errors.New("serialtest: port closed")
	}
	if len(p.pending) == 0 {
		if len(p.steps) == 0 {
			p.advance(p.IdleAdvance)
			return 0, nil
		}
		step := p.steps[0]
		p.steps = p.steps[1:]
		p.advance(step.Advance)
		if step.Err != nil {
			return 0, step.Err
		}
		p.pending = append(p.pending, step.Data...)
		if len(p.pending) == 0 {
			return 0, nil
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	p.writes++
	return p.written.Write(b)
}

func (p *Port) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drains++
	return p.DrainErr
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *Port) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func (p *Port) Drains() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drains
}

func (p *Port) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) advance(d time.Duration) {
	if d > 0 && p.clock != nil {
		p.clock.Advance(d)
	}
}

// Opener hands out pre-registered Ports by device name.
type Opener struct {
	mu     sync.Mutex
	ports  map[string]*Port
	opened []string
	Err    error
}

func NewOpener() *Opener {
	return &Opener{ports: make(map[string]*Port)}
}

func (o *Opener) Register(name string, port *Port) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ports[name] = port
}

func (o *Opener) Open(name string, _ int) (serial.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	port, ok := o.ports[name]
	if !ok {
		return nil, fmt.Errorf("serialtest: no such device %s", name)
	}
	o.opened = append(o.opened, name)
	return port, nil
}

func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
