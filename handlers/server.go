// Package handlers — ServerHandler: çoklu sunucu HTTP endpoint'leri.
//
// Thin handler prensibi: Parse → Service → Response.
// Sunucu listesi/oluşturma/katılma global (kullanıcıya özel), geri kalanı
// server-scoped (ServerMembershipMiddleware ile korunur).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/services"
)

// ServerHandler, sunucu endpoint'lerini yönetir.
type ServerHandler struct {
	serverService services.ServerService
}

// NewServerHandler, constructor.
func NewServerHandler(serverService services.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// ListMyServers godoc
// GET /api/servers
// Kullanıcının üye olduğu sunucuların sidebar listesini döner.
func (h *ServerHandler) ListMyServers(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	servers, err := h.serverService.ListMyServers(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// CreateServer godoc
// POST /api/servers
// Body: { "name": "...", "host_type": "mqvi_hosted" | "self_hosted", "livekit_url": "...", ... }
// Yeni bir sunucu oluşturur; varsayılan rol/kanal seed edilir, kurucu owner olur.
func (h *ServerHandler) CreateServer(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	server, err := h.serverService.CreateServer(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, server)
}

// JoinServer godoc
// POST /api/servers/join
// Body: { "invite_code": "..." }
func (h *ServerHandler) JoinServer(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.JoinServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	server, err := h.serverService.JoinServer(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// ReorderServers godoc
// PATCH /api/servers/reorder
// Body: { "server_ids": ["a", "b", "c"] }
func (h *ServerHandler) ReorderServers(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ReorderServersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.serverService.ReorderServers(r.Context(), user.ID, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "servers reordered"})
}

// GetServer godoc
// GET /api/servers/{serverId}
func (h *ServerHandler) GetServer(w http.ResponseWriter, r *http.Request) {
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	server, err := h.serverService.GetServer(r.Context(), serverID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// UpdateServer godoc
// PATCH /api/servers/{serverId}
// Body: { "name": "...", "invite_required": true }
// Admin yetkisi gerektirir.
func (h *ServerHandler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	var req models.UpdateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	server, err := h.serverService.UpdateServer(r.Context(), serverID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// DeleteServer godoc
// DELETE /api/servers/{serverId}
// Sadece sahip silebilir.
func (h *ServerHandler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	actor, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	if err := h.serverService.DeleteServer(r.Context(), serverID, actor.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "server deleted"})
}

// LeaveServer godoc
// POST /api/servers/{serverId}/leave
func (h *ServerHandler) LeaveServer(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	if err := h.serverService.LeaveServer(r.Context(), serverID, user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "left server"})
}

// GetLiveKitSettings godoc
// GET /api/servers/{serverId}/livekit
// Admin yetkisi gerektirir. Credential'lar asla dönülmez.
func (h *ServerHandler) GetLiveKitSettings(w http.ResponseWriter, r *http.Request) {
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	settings, err := h.serverService.GetLiveKitSettings(r.Context(), serverID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, settings)
}
