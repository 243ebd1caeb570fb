// Package dummy is an in-process reference session service. It exists so
// the harness can be exercised without a real deployment: tests run it
// over bufconn, and the dummy subcommand serves it on TCP with optional
// fault injection.
package dummy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"sessionprobe/internal/wire"
)

type ServerConfig struct {
	// FailRate makes Set fail with code 2 at this probability.
	FailRate float64

	// MinDelay/MaxDelay add uniform latency jitter to every call.
	MinDelay time.Duration
	MaxDelay time.Duration

	// StaleReads makes Get keep answering for deleted ids, which is the
	// defect the lifecycle scenarios are built to catch.
	StaleReads bool

	Log zerolog.Logger
}

// Server implements the session contract over an in-memory session table.
type Server struct {
	cfg ServerConfig

	mu       sync.Mutex
	sessions map[string]int64
	deleted  map[string]int64 // only populated when StaleReads is on
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		cfg:      cfg,
		sessions: make(map[string]int64),
		deleted:  make(map[string]int64),
	}
}

// Serve registers the service on a fresh gRPC server and serves lis in
// the background. The caller owns stopping the returned server.
func (s *Server) Serve(lis net.Listener) *grpc.Server {
	gs := grpc.NewServer()
	wire.RegisterSessionServer(gs, s)
	go gs.Serve(lis)
	return gs
}

// Start listens on a TCP port and blocks serving until the process dies.
func Start(port int, cfg ServerConfig) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	cfg.Log.Info().Str("addr", lis.Addr().String()).Msg("dummy session service listening")

	gs := grpc.NewServer()
	wire.RegisterSessionServer(gs, NewServer(cfg))
	return gs.Serve(lis)
}

func (s *Server) Ping(ctx context.Context, in *wire.PingRequest) (*wire.Pong, error) {
	s.jitter()
	return &wire.Pong{}, nil
}

func (s *Server) Set(ctx context.Context, in *wire.SetRequest) (*wire.SetResponse, error) {
	s.jitter()

	if s.cfg.FailRate > 0 && mrand.Float64() < s.cfg.FailRate {
		return &wire.SetResponse{
			Result: wire.Result{Code: 2, Msg: "failed to save session"},
		}, nil
	}

	id, err := newSessionID()
	if err != nil {
		return &wire.SetResponse{
			Result: wire.Result{Code: 1, Msg: "failed to generate session"},
		}, nil
	}

	s.mu.Lock()
	s.sessions[id] = in.UID
	s.mu.Unlock()

	return &wire.SetResponse{Session: id}, nil
}

func (s *Server) Get(ctx context.Context, in *wire.GetRequest) (*wire.GetResponse, error) {
	s.jitter()

	s.mu.Lock()
	defer s.mu.Unlock()

	if uid, ok := s.sessions[in.Session]; ok {
		return &wire.GetResponse{UID: uid}, nil
	}
	if s.cfg.StaleReads {
		if uid, ok := s.deleted[in.Session]; ok {
			return &wire.GetResponse{UID: uid}, nil
		}
	}
	return &wire.GetResponse{
		Result: wire.Result{Code: 1, Msg: "session not found"},
	}, nil
}

// Del is idempotent: deleting an unknown id still reports success.
func (s *Server) Del(ctx context.Context, in *wire.DelRequest) (*wire.DelResponse, error) {
	s.jitter()

	s.mu.Lock()
	defer s.mu.Unlock()

	if uid, ok := s.sessions[in.Session]; ok {
		delete(s.sessions, in.Session)
		if s.cfg.StaleReads {
			s.deleted[in.Session] = uid
		}
	}
	return &wire.DelResponse{}, nil
}

func (s *Server) Reload(ctx context.Context, in *wire.ReloadRequest) (*wire.ReloadResponse, error) {
	s.jitter()
	s.cfg.Log.Info().Msg("reload requested")
	return &wire.ReloadResponse{}, nil
}

// Count reports the live session population, for tests.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) jitter() {
	if s.cfg.MaxDelay <= 0 {
		return
	}
	d := s.cfg.MinDelay
	if span := s.cfg.MaxDelay - s.cfg.MinDelay; span > 0 {
		d += time.Duration(mrand.Int63n(int64(span)))
	}
	time.Sleep(d)
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
