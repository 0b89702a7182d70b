package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/handlers/userctx"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/service/auth"
)

const maxBodySize = 1 << 20

type Authenticator interface {
	TokenFromRequest(r *http.Request) string
	Authenticate(ctx context.Context, raw string) (auth.Principal, error)
	Authorize(p auth.Principal, required ...string) (models.User, error)
}

// Method is a registered procedure
// Auth requires valid access token, Scopes have to be granted to the token as well
type Method struct {
	Handler HandlerFunc
	Auth    bool
	Scopes  []string
}

type Server struct {
	auth    Authenticator
	logger  logger.Logger
	methods map[string]Method
}

func NewServer(a Authenticator, l logger.Logger) *Server {
	return &Server{
		auth:    a,
		logger:  l,
		methods: make(map[string]Method),
	}
}

// Register adds method, registering the same name twice is a programming error
func (s *Server) Register(name string, m Method) {
	if _, ok := s.methods[name]; ok {
		panic(fmt.Sprintf("jsonrpc: method %q registered twice", name))
	}
	if m.Handler == nil {
		panic(fmt.Sprintf("jsonrpc: method %q has no handler", name))
	}
	s.methods[name] = m
}

// Principal of the HTTP request, resolved at most once even for batches
type session struct {
	r        *http.Request
	auth     Authenticator
	resolved bool
	p        auth.Principal
	err      error
}

func (ss *session) principal(ctx context.Context) (auth.Principal, error) {
	if !ss.resolved {
		ss.p, ss.err = ss.auth.Authenticate(ctx, ss.auth.TokenFromRequest(ss.r))
		ss.resolved = true
	}
	return ss.p, ss.err
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, errParse))
		return
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		writeJSON(w, http.StatusOK, errorResponse(nil, errParse))
		return
	}

	ss := &session{r: r, auth: s.auth}

	if body[0] != '[' {
		resp := s.handleMessage(r.Context(), ss, body)
		if resp == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, errParse))
		return
	}
	if len(batch) == 0 {
		writeJSON(w, http.StatusOK, errorResponse(nil, errInvalidRequest))
		return
	}

	responses := make([]*Response, 0, len(batch))
	for _, msg := range batch {
		if resp := s.handleMessage(r.Context(), ss, msg); resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// handleMessage returns nil for notifications
func (s *Server) handleMessage(ctx context.Context, ss *session, msg json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(nil, errInvalidRequest)
	}
	if req.JSONRPC != version || req.Method == "" {
		return errorResponse(req.ID, errInvalidRequest)
	}

	result, rpcErr := s.call(ctx, ss, &req)
	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr)
	}
	return &Response{JSONRPC: version, ID: req.ID, Result: result}
}

func (s *Server) call(ctx context.Context, ss *session, req *Request) (result json.RawMessage, rpcErr *Error) {
	l := logger.FromContext(ctx, s.logger).With("rpc_method", req.Method)

	m, ok := s.methods[req.Method]
	if !ok {
		return nil, errMethodNotFound
	}

	defer func() {
		if rec := recover(); rec != nil {
			l.Error("rpc method panicked", "panic", rec)
			result, rpcErr = nil, errInternal
		}
	}()

	if m.Auth || len(m.Scopes) > 0 {
		p, err := ss.principal(ctx)
		if err != nil {
			return nil, s.toRPCError(l, err)
		}
		if _, err := s.auth.Authorize(p, m.Scopes...); err != nil {
			return nil, s.toRPCError(l, err)
		}
		ctx = userctx.New(ctx, p)
	}

	value, err := m.Handler(ctx, req.Params)
	if err != nil {
		return nil, s.toRPCError(l, err)
	}

	result, err = json.Marshal(value)
	if err != nil {
		l.Error("rpc result can not be marshalled", "error", err)
		return nil, errInternal
	}
	return result, nil
}

func (s *Server) toRPCError(l logger.Logger, err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr == apperrors.ErrServiceUnavailable {
			l.Error("rpc method failed", "error", err)
		}
		return &Error{Code: appErr.Code, Message: appErr.Message}
	}

	l.Error("rpc method failed", "error", err)
	return errInternal
}

// WriteUnavailable answers the whole request when it can not be served at all
func WriteUnavailable(w http.ResponseWriter, _ error) {
	e := apperrors.ErrServiceUnavailable
	writeJSON(w, http.StatusServiceUnavailable, errorResponse(nil, &Error{Code: e.Code, Message: e.Message}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
