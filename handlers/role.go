// Package handlers — RoleHandler: rol yönetimi HTTP endpoint'leri.
//
// Tüm CUD (Create, Update, Delete) endpoint'leri MANAGE_ROLES yetkisi gerektirir.
// Ek olarak RoleService hiyerarşi kontrolü yapar (düşük position'daki rolleri yönetebilirsin).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/services"
)

// RoleHandler, rol endpoint'lerini yöneten struct.
type RoleHandler struct {
	roleService services.RoleService
}

// NewRoleHandler, constructor.
func NewRoleHandler(roleService services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// List godoc
// GET /api/servers/{serverId}/roles
// Sunucunun tüm rollerini position DESC sıralı döner.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	roles, err := h.roleService.GetAllByServer(r.Context(), serverID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, roles)
}

// Create godoc
// POST /api/servers/{serverId}/roles
// Body: { "name": "...", "color": "#FF5733", "permissions": 123 }
//
// Yeni rol oluşturur. MANAGE_ROLES yetkisi + hiyerarşi kontrolü gerektirir.
// Position otomatik atanır (actor'un hemen altı).
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	var req models.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roleService.Create(r.Context(), serverID, actor.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, role)
}

// Update godoc
// PATCH /api/servers/{serverId}/roles/{id}
// Body: { "name": "...", "color": "...", "permissions": 123 } (partial update)
//
// Rolü günceller. MANAGE_ROLES yetkisi + hiyerarşi kontrolü gerektirir.
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)
	roleID := r.PathValue("id")

	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roleService.Update(r.Context(), serverID, actor.ID, roleID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, role)
}

// Delete godoc
// DELETE /api/servers/{serverId}/roles/{id}
// Rolü siler. MANAGE_ROLES yetkisi + hiyerarşi kontrolü gerektirir.
// Owner ve default rol silinemez.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)
	roleID := r.PathValue("id")

	if err := h.roleService.Delete(r.Context(), serverID, actor.ID, roleID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "role deleted"})
}

// Reorder godoc
// PATCH /api/servers/{serverId}/roles/reorder
// Body: { "items": [{ "id": "abc", "position": 3 }, ...] }
//
// Rollerin sıralamasını toplu günceller. MANAGE_ROLES yetkisi + hiyerarşi kontrolü gerektirir.
// Owner ve default rol sıralama listesine dahil edilemez.
func (h *RoleHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	actor, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serverID, _ := r.Context().Value(ServerIDContextKey).(string)

	var req models.ReorderChannelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	roles, err := h.roleService.ReorderRoles(r.Context(), serverID, actor.ID, req.Items)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, roles)
}
