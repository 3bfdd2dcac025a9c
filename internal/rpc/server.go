package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Options tunes the HTTP surface
type Options struct {
	// Timeout bounds one method call
	Timeout time.Duration

	// MaxBodyBytes caps the size of a request body
	MaxBodyBytes int64
}

// Server handles HTTP JSON-RPC requests
type Server struct {
	registry *MethodRegistry
	opts     Options
}

// NewServer creates a new RPC server over svc
func NewServer(svc LedgerService, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	server := &Server{
		registry: NewMethodRegistry(),
		opts:     opts,
	}

	// Register all RPC methods
	registerAllMethods(server.registry, svc)

	return server
}

// Registry returns the method registry shared with the WebSocket server
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// Request is a JSON-RPC request
// Format: {"method": "method_name", "params": [{...}]}
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.handleGetRequest(w, r)
	case http.MethodPost:
		s.handlePostRequest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetRequest runs a parameterless method named by ?command=
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		method = "server_info"
	}
	result, rpcErr := s.executeMethod(method, nil, s.newContext(r))
	s.writeResponse(w, map[string]interface{}{"command": method}, result, rpcErr)
}

// handlePostRequest processes POST requests with a JSON-RPC payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, nil, NewRpcError(RpcINVALID_PARAMS, "requestTooLarge", "requestTooLarge", "Request body too large"))
			return
		}
		s.writeError(w, nil, RpcErrorInternal("Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, nil, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeError(w, nil, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing method field"))
		return
	}

	// params is an array holding one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	result, rpcErr := s.executeMethod(request.Method, params, s.newContext(r))

	requestObj := map[string]interface{}{}
	if params != nil {
		_ = json.Unmarshal(params, &requestObj)
	}
	requestObj["command"] = request.Method
	s.writeResponse(w, requestObj, result, rpcErr)
}

func (s *Server) newContext(r *http.Request) *RpcContext {
	return &RpcContext{Context: r.Context(), ClientIP: getClientIP(r)}
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}
	return callWithTimeout(handler, ctx, params, s.opts.Timeout)
}

// writeResponse writes a JSON-RPC response. result.status is "success" or
// "error"; errors echo the request.
func (s *Server) writeResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *RpcError) {
	if rpcErr != nil {
		s.writeError(w, request, rpcErr)
		return
	}
	s.write(w, map[string]interface{}{"result": withStatus(result)})
}

func (s *Server) writeError(w http.ResponseWriter, request interface{}, rpcErr *RpcError) {
	s.write(w, map[string]interface{}{"result": errorObject(request, rpcErr)})
}

func (s *Server) write(w http.ResponseWriter, response map[string]interface{}) {
	data, err := json.Marshal(response)
	if err != nil {
		log.WithError(err).Error("failed to marshal response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// withStatus adds status to a map result and wraps anything else
func withStatus(result interface{}) map[string]interface{} {
	if m, ok := result.(map[string]interface{}); ok {
		m["status"] = "success"
		return m
	}
	return map[string]interface{}{"status": "success", "data": result}
}

func errorObject(request interface{}, rpcErr *RpcError) map[string]interface{} {
	obj := map[string]interface{}{
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if request != nil {
		obj["request"] = request
	}
	return obj
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
