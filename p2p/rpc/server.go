package rpc

import (
	"io/ioutil"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tendermint/tendermint/libs/log"

	"slotbft/types"
	"slotbft/version"
)

// MethodHandler answers a single POST /peer/<method> call.
type MethodHandler func(params []byte, from types.Node) (interface{}, error)

// PeerLister supplies the live peer set for GET /api/peers.
type PeerLister interface {
	HealthyNodes() []types.Node
}

// VersionInfo backs GET /api/peers/version.
type VersionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Net     string `json:"net"`
}

// Server is the peer HTTP surface every node exposes one port below its
// DHT listener: POST /peer/<method>, GET /api/peers, GET
// /api/peers/version, POST /api/p2phelper.
type Server struct {
	Magic   string
	Version string

	peers   PeerLister
	info    VersionInfo
	methods map[string]MethodHandler

	httpServer *http.Server
	logger     log.Logger
}

func NewServer(magic, version string, info VersionInfo, peers PeerLister) *Server {
	return &Server{
		Magic:   magic,
		Version: version,
		info:    info,
		peers:   peers,
		methods: make(map[string]MethodHandler),
	}
}

func (s *Server) SetLogger(logger log.Logger) {
	s.logger = logger
}

// Handle registers a handler for POST /peer/<method>.
func (s *Server) Handle(method string, h MethodHandler) {
	s.methods[method] = h
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/peer/{method}", s.handlePeerMethod).Methods(http.MethodPost)
	r.HandleFunc("/api/peers", s.handlePeers).Methods(http.MethodGet)
	r.HandleFunc("/api/peers/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/p2phelper", s.handleP2PHelper).Methods(http.MethodPost)
	return r
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router()}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

func (s *Server) handlePeerMethod(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("magic") != s.Magic {
		http.Error(w, "bad magic", http.StatusForbidden)
		return
	}
	if !version.Compatible(r.Header.Get("version"), s.info.Net) {
		http.Error(w, "incompatible version", http.StatusForbidden)
		return
	}
	method := mux.Vars(r)["method"]
	handler, ok := s.methods[method]
	if !ok {
		http.Error(w, "unknown method", http.StatusNotFound)
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body failed", http.StatusBadRequest)
		return
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	result, err := handler(body, types.Node{Host: host})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

// handlePeers lists up to 100 known peers.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	nodes := s.peers.HealthyNodes()
	if len(nodes) > 100 {
		nodes = nodes[:100]
	}
	writeJSON(w, nodes)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.info)
}

// handleP2PHelper reports the caller's observed remote IP, used for
// self-IP discovery.
func (s *Server) handleP2PHelper(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	writeJSON(w, map[string]string{"ip": host})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
