// Package diag exposes a socket table snapshot over HTTP/3, reusing the
// runtime's HTTP3Server and self-signed certificate helpers rather than
// standing up a plain net/http server. It is entirely optional: picosock
// functions identically with no diag server running.
package diag

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ivxnet/picosock/internal/picosock"
	"github.com/ivxnet/picosock/internal/runtime/netstack"
)

// SocketSnapshot is one row of the JSON table dump.
type SocketSnapshot struct {
	Slot  int    `json:"slot"`
	Kind  string `json:"kind"`
	State string `json:"state"`
	Port  uint16 `json:"port"`
}

// Snapshotter is satisfied by picosock.Stack; kept as an interface so tests
// can substitute a fake table.
type Snapshotter interface {
	Table() *picosock.Table
}

// Server is the diagnostics HTTP/3 endpoint.
type Server struct {
	stack Snapshotter
	http3 *netstack.HTTP3Server
}

// New builds a diagnostics server over stack's socket table. It does not
// start listening until Start is called.
func New(stack Snapshotter, addr string) (*Server, error) {
	tlsCfg, err := netstack.GenerateSelfSignedTLS([]string{"localhost", "127.0.0.1"}, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	s := &Server{stack: stack}
	mux := http.NewServeMux()
	mux.HandleFunc("/sockets", s.handleSockets)
	s.http3 = netstack.NewHTTP3Server(addr, tlsCfg, mux)
	return s, nil
}

// Start begins serving and returns the bound address.
func (s *Server) Start() (string, error) { return s.http3.Start() }

// Stop shuts the server down.
func (s *Server) Stop() error { return s.http3.Stop() }

func (s *Server) handleSockets(w http.ResponseWriter, r *http.Request) {
	table := s.stack.Table()
	records := table.Records()
	out := make([]SocketSnapshot, 0, len(records))
	for _, rec := range records {
		slot, kind, state, port := rec.Describe()
		out = append(out, SocketSnapshot{Slot: slot, Kind: kind.String(), State: state.String(), Port: port})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
