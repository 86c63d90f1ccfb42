package server

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/irlink/internal/channel"
	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const recentFrames = 32

// idleBackoff spaces receive calls on channels that return immediately.
const idleBackoff = 5 * time.Millisecond

// Frame is one received payload as reported over HTTP.
type Frame struct {
	At      time.Time `json:"at"`
	Channel string    `json:"channel"`
	Payload string    `json:"payload_hex"`
}

// Server exposes a comm.Handler over HTTP. It owns the handler's single-owner
// discipline: every call into the handler happens under mu.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	mu      sync.Mutex
	handler *comm.Handler
	recent  []Frame

	listPorts func() (map[string]string, error)
	router    *gin.Engine
}

func New(id, addr string, handler *comm.Handler, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if handler == nil {
		handler = comm.NewHandler()
	}
	s := &Server{
		ID:        id,
		Addr:      addr,
		Appeared:  time.Now(),
		handler:   handler,
		listPorts: comm.ListSerialPorts,
		router:    r,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Send forwards payload to the active channel.
func (s *Server) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Send(payload)
}

// ActiveChannel reports the active channel kind and its target.
func (s *Server) ActiveChannel() (channel.Kind, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Active(), channel.Describe(s.handler.Channel())
}

// Recent returns the last received frames, oldest first.
func (s *Server) Recent() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.recent...)
}

// ReceiveLoop polls the handler until ctx is done, recording every frame.
func (s *Server) ReceiveLoop(ctx context.Context) error {
	for {
		s.mu.Lock()
		kind := s.handler.Active()
		payload, ok, err := s.handler.Receive(ctx)
		if ok {
			s.record(kind, payload)
		}
		s.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ok {
			log.Info().Str("channel", kind.String()).Hex("payload", payload).Msg("frame received")
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(idleBackoff):
		}
	}
}

func (s *Server) record(kind channel.Kind, payload []byte) {
	s.recent = append(s.recent, Frame{
		At:      time.Now(),
		Channel: kind.String(),
		Payload: hex.EncodeToString(payload),
	})
	if len(s.recent) > recentFrames {
		s.recent = s.recent[len(s.recent)-recentFrames:]
	}
}

// Serve runs the HTTP listener until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("id", s.ID).Str("addr", s.Addr).Msg("status server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
