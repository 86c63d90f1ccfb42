// Package rendezvous lets two processes on one host exchange a UDP port
// through a shared directory, with no broker.
//
// Each process writes an advertisement file named by its identifier holding
// the decimal port. A peer consumes the first foreign advertisement it finds
// by reading and deleting it, so the exchange is only sound for two
// participants at a time.
package rendezvous

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const DirName = "irlink-rdv"

// tempPrefix marks in-flight advertisement writes; scans skip them.
const tempPrefix = "."

var (
	ErrAdvertise       = errors.New("rendezvous: advertise failed")
	ErrMalformedAdvert = errors.New("rendezvous: malformed advertisement")
)

// DefaultDir is the shared rendezvous directory under the platform temp dir.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DirName)
}

type options struct {
	dir string
	id  string
}

type Option func(*options)

// WithDir overrides the rendezvous directory.
func WithDir(dir string) Option {
	return func(o *options) {
		if strings.TrimSpace(dir) != "" {
			o.dir = dir
		}
	}
}

// WithID overrides the advertisement identifier, which defaults to the pid.
func WithID(id string) Option {
	return func(o *options) {
		if strings.TrimSpace(id) != "" {
			o.id = id
		}
	}
}

// Advertiser owns one advertisement file from New until Close.
type Advertiser struct {
	dir     string
	id      string
	path    string
	port    uint16
	cleanup runtime.Cleanup
}

// New advertises port in the rendezvous directory, creating it if needed.
func New(port uint16, opts ...Option) (*Advertiser, error) {
	o := options{dir: DefaultDir(), id: strconv.Itoa(os.Getpid())}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.ContainsAny(o.id, `/\`) || strings.HasPrefix(o.id, tempPrefix) {
		return nil, fmt.Errorf("%w: invalid identifier %q", ErrAdvertise, o.id)
	}

	a := &Advertiser{
		dir:  o.dir,
		id:   o.id,
		path: filepath.Join(o.dir, o.id),
		port: port,
	}
	if err := a.advertise(); err != nil {
		return nil, err
	}
	// Backstop for advertisers dropped without Close.
	a.cleanup = runtime.AddCleanup(a, removeAdvertisement, a.path)

	log.Debug().Str("path", a.path).Uint16("port", port).Msg("rendezvous advertised")
	return a, nil
}

func (a *Advertiser) ID() string {
	return a.id
}

func (a *Advertiser) Dir() string {
	return a.dir
}

func (a *Advertiser) Path() string {
	return a.path
}

func (a *Advertiser) Port() uint16 {
	return a.port
}

func (a *Advertiser) advertise() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrAdvertise, a.dir, err)
	}
	tmp := filepath.Join(a.dir, tempPrefix+a.id)
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(uint64(a.port), 10)), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrAdvertise, tmp, err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: publish %s: %v", ErrAdvertise, a.path, err)
	}
	return nil
}

// TryToMeet scans the directory once and consumes the first advertisement
// that is not this advertiser's own. It never blocks; callers poll.
func (a *Advertiser) TryToMeet() (uint16, bool) {
	port, err := a.meet()
	if err != nil {
		log.Debug().Err(err).Str("dir", a.dir).Msg("rendezvous meet attempt failed")
		return 0, false
	}
	return port, port != 0
}

func (a *Advertiser) meet() (uint16, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rendezvous: scan %s: %w", a.dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == a.id || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		path := filepath.Join(a.dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		_ = os.Remove(path)
		return parsePort(name, content)
	}
	return 0, nil
}

func parsePort(name string, content []byte) (uint16, error) {
	v, err := strconv.ParseUint(string(content), 10, 16)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %s: %q", ErrMalformedAdvert, name, content)
	}
	return uint16(v), nil
}

// Close removes this advertiser's own file if it is still present.
func (a *Advertiser) Close() error {
	a.cleanup.Stop()
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rendezvous: remove %s: %w", a.path, err)
	}
	return nil
}

func removeAdvertisement(path string) {
	_ = os.Remove(path)
}
