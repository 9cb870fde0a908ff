package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/spinforge/platform/internal/cache"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
)

// SessionGateway routes player traffic into live sessions.
type SessionGateway interface {
	Request(token, requestID string, raw json.RawMessage) *protocol.Envelope
	Ping(token string) bool
}

// LoginGateway opens new sessions.
type LoginGateway interface {
	Login(ctx context.Context, req *protocol.LoginRequest, ip, userAgent string) (string, *protocol.Envelope, error)
	LoginReplay(ctx context.Context, roundID int64, req *protocol.LoginRequest, ip, userAgent string) (string, *protocol.Envelope, error)
}

// ClientHandler serves the game handle and ping endpoints. A request without
// an auth-token is a login; everything else is forwarded to the owning
// session. Responses marked cacheable are replayed verbatim when the client
// retransmits the same request id.
type ClientHandler struct {
	sessions  SessionGateway
	logins    LoginGateway
	responses *cache.ResponseCache
	cacheOn   bool
	logger    *slog.Logger
}

// NewClientHandler creates the handler. responses may be nil to disable the
// request-id replay cache.
func NewClientHandler(sessions SessionGateway, logins LoginGateway, responses *cache.ResponseCache, cacheOn bool, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		sessions:  sessions,
		logins:    logins,
		responses: responses,
		cacheOn:   cacheOn && responses != nil,
		logger:    logger,
	}
}

// Handle serves POST {prefix}/handle.
func (h *ClientHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(HeaderAuthToken)
	if token == "" {
		h.login(w, r, 0)
		return
	}
	h.forward(w, r, token)
}

// Ping serves POST {prefix}/ping.
func (h *ClientHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Ping(r.Header.Get(HeaderAuthToken)) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplayHandle serves POST replay/{roundID}/handle.
func (h *ClientHandler) ReplayHandle(w http.ResponseWriter, r *http.Request) {
	roundID, err := strconv.ParseInt(chi.URLParam(r, "roundID"), 10, 64)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid round id"))
		return
	}
	token := r.Header.Get(HeaderAuthToken)
	if token == "" {
		h.login(w, r, roundID)
		return
	}
	h.forward(w, r, token)
}

func (h *ClientHandler) login(w http.ResponseWriter, r *http.Request, roundID int64) {
	var req protocol.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeEnvelope(w, "", protocol.NewError(domain.ErrBadFormat()))
		return
	}

	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}
	var token string
	var env *protocol.Envelope
	var err error
	if roundID > 0 {
		token, env, err = h.logins.LoginReplay(r.Context(), roundID, &req, ip, r.UserAgent())
	} else {
		token, env, err = h.logins.Login(r.Context(), &req, ip, r.UserAgent())
	}
	if err != nil {
		h.logger.Warn("login failed", "user", req.UserName, "game", req.GameName, "error", err)
		h.writeEnvelope(w, "", protocol.NewError(err))
		return
	}

	w.Header().Set(HeaderAuthToken, token)
	h.writeEnvelope(w, "", env)
}

func (h *ClientHandler) forward(w http.ResponseWriter, r *http.Request, token string) {
	requestID := r.Header.Get(HeaderRequestID)
	if h.cacheOn && requestID != "" {
		if cached, ok := h.responses.Get(requestID); ok {
			for k, vs := range cached.Header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.Header().Set(HeaderCacheStatus, "enable")
			w.WriteHeader(cached.Status)
			w.Write(cached.Body)
			return
		}
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeEnvelope(w, "", protocol.NewError(domain.ErrBadFormat()))
		return
	}
	env := h.sessions.Request(token, requestID, raw)
	h.writeEnvelope(w, requestID, env)
}

// writeEnvelope renders one envelope and, when the session marked it
// cacheable, remembers it under the id the client sent.
func (h *ClientHandler) writeEnvelope(w http.ResponseWriter, requestID string, env *protocol.Envelope) {
	if env.NextID != "" {
		w.Header().Set(HeaderRequestID, env.NextID)
	}
	status := env.Status
	if status == 0 {
		status = http.StatusOK
	}

	body, err := json.Marshal(env.Body)
	if err != nil {
		h.logger.Error("marshal response", "error", err)
		RespondError(w, domain.ErrInternal("render response", err))
		return
	}
	if h.cacheOn && env.Cache && requestID != "" {
		header := http.Header{}
		if env.NextID != "" {
			header.Set(HeaderRequestID, env.NextID)
		}
		h.responses.Put(requestID, &cache.CachedResponse{Status: status, Header: header, Body: body})
	}
	w.WriteHeader(status)
	w.Write(body)
}
