// Package rpc serves the escrow ledger over XRPL-style JSON-RPC, a
// websocket transaction stream, prometheus metrics and a health check.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goEscrowd/internal/config"
)

// Server handles HTTP JSON-RPC requests using XRPL format
type Server struct {
	cfg      config.ServerConfig
	svc      LedgerService
	registry *MethodRegistry
	limiter  *RateLimiter
	ws       *WebSocketServer

	metrics        Metrics
	metricsHandler http.Handler
	logger         logrus.FieldLogger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records RPC activity in m and serves handler on /metrics
// when it is not nil.
func WithMetrics(m Metrics, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsHandler = handler
	}
}

// NewServer creates a new RPC server
func NewServer(cfg config.ServerConfig, svc LedgerService, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		registry: NewMethodRegistry(),
		metrics:  noopMetrics{},
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "rpc")

	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.ws = NewWebSocketServer(svc.Publisher(), cfg.SendQueueLimit, s.logger)
	s.ws.execute = s.executeMethod
	s.ws.timeout = cfg.RequestTimeout

	s.registerAllMethods()
	return s
}

// Registry returns the method registry
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.metrics.RecordThrottle))
		}
		r.Get("/ws", s.ws.ServeHTTP)
		r.Post("/", s.handlePostRequest)
		r.Get("/", s.handleGetRequest)
		r.Options("/", s.handleOptions)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.WithField("addr", ln.Addr().String()).Info("rpc server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		s.ws.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})
	if s.limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(visitorTTL)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					s.limiter.Sweep()
				}
			}
		})
	}

	err := g.Wait()
	s.logger.Info("rpc server stopped")
	return err
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// handleGetRequest serves ?command=name with no parameters
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		method = "server_info"
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, rpcErr := s.executeMethod(method, nil, newRPCContext(ctx, r))
	s.writeXrplResponse(w, nil, result, rpcErr)
}

// handlePostRequest processes POST requests with an XRPL JSON-RPC payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	reader := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		s.writeXrplError(w, NewRpcError(RpcINVALID_PARAMS, "invalidParams", "Failed to read request body: "+err.Error()))
		return
	}

	var request XrplRequest
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeXrplError(w, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeXrplError(w, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing method field"))
		return
	}

	// XRPL uses params as an array with one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, rpcErr := s.executeMethod(request.Method, params, newRPCContext(ctx, r))

	requestObj := map[string]interface{}{}
	if params != nil {
		_ = json.Unmarshal(params, &requestObj)
	}
	requestObj["command"] = request.Method

	s.writeXrplResponse(w, requestObj, result, rpcErr)
}

// newRPCContext derives the role from the connection's own address;
// forwarding headers only name the client.
func newRPCContext(ctx context.Context, r *http.Request) *RpcContext {
	return &RpcContext{Context: ctx, ClientIP: getClientIP(r), Role: roleForRemote(r.RemoteAddr)}
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		s.metrics.ObserveRPC("unknown", true, 0)
		return nil, RpcErrorMethodNotFound(method)
	}
	if rr, ok := handler.(RoleRequirer); ok && ctx.Role < rr.RequiredRole() {
		s.metrics.ObserveRPC(method, true, 0)
		return nil, RpcErrorNoPermission("You don't have permission for this command.")
	}

	start := time.Now()
	result, rpcErr := handler.Handle(ctx, params)
	elapsed := time.Since(start)
	s.metrics.ObserveRPC(method, rpcErr != nil, elapsed)

	if rpcErr != nil && rpcErr.Code == RpcINTERNAL {
		s.logger.WithFields(logrus.Fields{
			"method": method,
			"client": ctx.ClientIP,
		}).Warn(rpcErr.Message)
	}
	return result, rpcErr
}

// writeXrplResponse writes an XRPL format JSON-RPC response:
// result.status is "success" or "error"
func (s *Server) writeXrplResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *RpcError) {
	var resultObj map[string]interface{}
	if rpcErr != nil {
		resultObj = map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
	} else if m, ok := result.(map[string]interface{}); ok {
		resultObj = m
		resultObj["status"] = "success"
	} else {
		resultObj = map[string]interface{}{
			"status": "success",
			"data":   result,
		}
	}
	s.writeJSON(w, map[string]interface{}{"result": resultObj})
}

// writeXrplError writes an error for a request that never reached a method
func (s *Server) writeXrplError(w http.ResponseWriter, rpcErr *RpcError) {
	s.writeXrplResponse(w, nil, nil, rpcErr)
}

func (s *Server) writeJSON(w http.ResponseWriter, response interface{}) {
	responseData, err := json.Marshal(response)
	if err != nil {
		s.logger.WithError(err).Error("failed to marshal response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseData)
}
