package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	logger   log.FieldLogger
}

func NewServer(addr string, upgrader websocket.Upgrader, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		logger:   logger,
	}
}

// Handler routes /ws to the case runner.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.serveWs(ctx, w, r)
	})
	return mux
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	logger := s.logger.WithField("remote", r.RemoteAddr)
	logger.Info("client connected")
	NewHub(conn, logger).Run(ctx)
	logger.Info("client disconnected")
}

// Serve listens until ctx is done.
func (s *Server) Serve(ctx context.Context) (err error) {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(ctx),
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	s.logger.WithField("addr", s.addr).Info("serving websocket on /ws")
	if err = srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return
}
