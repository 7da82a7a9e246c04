// Package rpc is the HTTP transport for the node's RPC front
// (SPEC_FULL.md §6): a small, closed JSON surface for submitting
// RpcRequests plus a handful of read-only /debug endpoints, routed with
// github.com/julienschmidt/httprouter and CORS-guarded with
// github.com/rs/cors so a browser-based debug dashboard can reach it.
//
// Every endpoint here is single-shot; the multi-shot subscribe RPC is
// reachable only through Front.Submit directly (e.g. the console), since
// a plain request/response HTTP round trip has nowhere to push a second
// reply.
package rpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"snarker-node/log"
	"snarker-node/snarker"
	"snarker-node/snarker/rpcfront"
)

// Server owns the HTTP listener that fronts the node's RpcRequest sum
// type plus the read-only /debug endpoints.
type Server struct {
	front *snarker.Front
	http  *http.Server
}

// httpResponder adapts one HTTP request/response round trip to
// rpcfront.Responder by blocking on a one-shot channel (spec §4.6:
// single-shot responder contract).
type httpResponder struct {
	ch chan rpcfront.Response
}

func newHTTPResponder() *httpResponder { return &httpResponder{ch: make(chan rpcfront.Response, 1)} }

func (r *httpResponder) Respond(resp rpcfront.Response) { r.ch <- resp }

func (r *httpResponder) Close() {}

// wireRequest is the JSON shape accepted by POST /rpc.
type wireRequest struct {
	Kind       string `json:"kind"`
	Address    string `json:"address,omitempty"`
	AutoCommit bool   `json:"auto_commit,omitempty"`
}

var kindsByName = map[string]rpcfront.RequestKind{
	"connect_peer":  rpcfront.ReqConnectPeer,
	"get_status":    rpcfront.ReqGetStatus,
	"get_peers":     rpcfront.ReqGetPeers,
	"get_pool":      rpcfront.ReqGetPool,
	"set_autocommit": rpcfront.ReqSetAutoCommit,
}

// New builds a Server bound to addr, dispatching through front.
func New(addr string, front *snarker.Front) *Server {
	router := httprouter.New()

	s := &Server{front: front}
	router.POST("/rpc", s.handleRPC)
	router.GET("/debug/status", s.handleDebugStatus)
	router.GET("/debug/peers", s.handleDebugPeers)
	router.GET("/debug/pool", s.handleDebugPool)

	handler := cors.Default().Handler(router)
	s.http = &http.Server{Addr: addr, Handler: handler, ReadTimeout: 10 * time.Second}
	return s
}

// ListenAndServe blocks serving HTTP until the listener is closed.
func (s *Server) ListenAndServe() error {
	log.Info("rpc: http server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) handleRPC(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	reqId := uuid.New().String()
	var wr wireRequest
	if err := json.NewDecoder(req.Body).Decode(&wr); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	kind, ok := kindsByName[wr.Kind]
	if !ok {
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}

	responder := newHTTPResponder()
	s.front.Submit(rpcfront.Request{Kind: kind, Address: wr.Address, AutoCommit: wr.AutoCommit}, responder)

	select {
	case resp := <-responder.ch:
		writeJSON(w, resp)
	case <-time.After(30 * time.Second):
		log.Warn("rpc: request timed out waiting for reactor", "request_id", reqId)
		http.Error(w, "timed out", http.StatusGatewayTimeout)
	}
}

func (s *Server) handleDebugStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.proxy(w, rpcfront.Request{Kind: rpcfront.ReqGetStatus})
}

func (s *Server) handleDebugPeers(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.proxy(w, rpcfront.Request{Kind: rpcfront.ReqGetPeers})
}

func (s *Server) handleDebugPool(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.proxy(w, rpcfront.Request{Kind: rpcfront.ReqGetPool})
}

func (s *Server) proxy(w http.ResponseWriter, req rpcfront.Request) {
	responder := newHTTPResponder()
	s.front.Submit(req, responder)
	select {
	case resp := <-responder.ch:
		writeJSON(w, resp)
	case <-time.After(5 * time.Second):
		http.Error(w, "timed out", http.StatusGatewayTimeout)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("rpc: failed to encode response", "err", err)
	}
}
