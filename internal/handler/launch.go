package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/spinforge/platform/internal/cache"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/infra"
)

// LaunchHandler builds game launch URLs over the cached host list.
type LaunchHandler struct {
	hosts  *cache.LaunchCache
	cfg    *infra.Config
	logger *slog.Logger
}

// NewLaunchHandler creates the handler.
func NewLaunchHandler(hosts *cache.LaunchCache, cfg *infra.Config, logger *slog.Logger) *LaunchHandler {
	return &LaunchHandler{hosts: hosts, cfg: cfg, logger: logger}
}

// Handle serves GET/POST launch. The game travels in the "game" query
// parameter; remaining parameters are passed through to the launch URL.
func (h *LaunchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	game := query.Get("game")
	if game == "" {
		RespondError(w, domain.ErrValidation("missing game"))
		return
	}
	query.Del("game")

	fallback := h.cfg.GamesDomain
	if fallback == "" {
		fallback = r.Header.Get("X-Forwarded-Host")
	}
	if fallback == "" {
		fallback = r.Host
	}
	host := h.hosts.PickHost(r.Context(), fallback)

	dir := h.cfg.GamesDir
	if query.Get("jackpots") == "false" {
		dir = h.cfg.GamesDirNoJack
		query.Del("jackpots")
	}
	if h.cfg.ServiceLegacy && h.cfg.ServiceName != "" {
		dir = path.Join("/", h.cfg.ServiceName, dir)
	}
	if h.cfg.CuracaoOn {
		query.Set("curacao", "true")
	}

	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     path.Join(dir, game) + "/",
		RawQuery: query.Encode(),
	}
	RespondJSON(w, http.StatusOK, map[string]string{"url": u.String()})
}
