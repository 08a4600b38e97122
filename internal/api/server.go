package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/roles"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderAuth   = "X-Auth"
	maxBodyBytes = 2 << 20
)

// Status describes the wiring reported by the health endpoint.
type Status struct {
	RelayEnabled bool
	RelaySigned  bool
	StoreBackend string
	RolesEnabled bool
}

// RoleAssigner is satisfied by *roles.Assigner.
type RoleAssigner interface {
	Assign(ctx context.Context, userID, roleName, roleID, reason string) (string, error)
}

// RoleAPI guards POST /assign-role with a shared key sent in X-Auth.
type RoleAPI struct {
	Key      string
	Assigner RoleAssigner
}

type Server struct {
	router  chi.Router
	port    int
	status  Status
	roleAPI *RoleAPI
	http    *http.Server
}

// NewServer mounts interactions at POST /interactions and, when roleAPI is
// set, the role endpoint at POST /assign-role. Nil values leave only the
// liveness and health routes.
func NewServer(port int, status Status, interactions http.Handler, roleAPI *RoleAPI) *Server {
	srv := &Server{
		port:    port,
		status:  status,
		roleAPI: roleAPI,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/", srv.handleRoot)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
	})
	if interactions != nil {
		r.Method(http.MethodPost, "/interactions", interactions)
	}
	if roleAPI != nil && roleAPI.Key != "" && roleAPI.Assigner != nil {
		r.With(srv.requireKey).Post("/assign-role", srv.handleAssignRole)
	}

	srv.router = r
	return srv
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("starting HTTP API", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"name": "Viren",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      "viren",
		"relay":        s.status.RelayEnabled,
		"relay_signed": s.status.RelaySigned,
		"store":        s.status.StoreBackend,
		"roles":        s.status.RolesEnabled,
	})
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAuth)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.roleAPI.Key)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type assignRoleRequest struct {
	DiscordID string `json:"discordId"`
	RoleName  string `json:"roleName"`
	RoleID    string `json:"roleId"`
	Reason    string `json:"reason"`
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}
	if req.DiscordID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "discordId required"})
		return
	}

	roleID, err := s.roleAPI.Assigner.Assign(r.Context(), req.DiscordID, req.RoleName, req.RoleID, req.Reason)
	switch {
	case errors.Is(err, roles.ErrRoleNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	case errors.Is(err, roles.ErrMemberNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": err.Error()})
		return
	case err != nil:
		slog.Error("assign role failed", "discord_id", req.DiscordID, "role_name", req.RoleName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "discordId": req.DiscordID, "roleId": roleID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
