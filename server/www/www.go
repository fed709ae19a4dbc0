package www

// Package www publishes pipeline output to the rest of the
// application: a JSON status endpoint and a websocket stream of fatigue
// results.

import (
	"net/http"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/driftguard/driftguard/server/pipeline"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	Log      logs.Log
	pipeline *pipeline.Pipeline
	router   *httprouter.Router
	upgrader websocket.Upgrader
}

func NewServer(logger logs.Log, pipe *pipeline.Pipeline) *Server {
	s := &Server{
		Log:      logger,
		pipeline: pipe,
		router:   httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	www.Handle(logger, s.router, "GET", "/api/status", s.httpStatus)
	www.Handle(logger, s.router, "GET", "/api/ws/results", s.httpResultsWebSocket)
	return s
}

// Handler exposes the router, for tests and for embedding into a larger mux.
func (s *Server) Handler() http.Handler {
	return s.router
}

// port example: ":8080"
func (s *Server) ListenAndServe(port string) error {
	s.Log.Infof("Listening on %v", port)
	return http.ListenAndServe(port, s.router)
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.pipeline.Stats())
}

// Stream every fatigue result to the websocket client until it
// disconnects. A slow client falls behind on its watcher channel and
// has results dropped there, rather than stalling the pipeline.
func (s *Server) httpResultsWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		s.Log.Errorf("httpResultsWebSocket websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	results := s.pipeline.AddWatcher()
	defer s.pipeline.RemoveWatcher(results)

	// Reader goroutine exists only to detect client disconnect
	closed := make(chan bool)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case result := <-results:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(result); err != nil {
				s.Log.Infof("Websocket result stream closed: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
