// Package services — RoleService: rol CRUD iş mantığı.
//
// Roller sunucudaki yetki gruplarını temsil eder, sunucuya özeldir (server-scoped).
// Her rolün bir position (hiyerarşi sırası), renk ve permission bitfield'ı vardır.
//
// Hiyerarşi kuralı:
// Bir kullanıcı sadece kendi en yüksek rolünden düşük position'daki
// rolleri oluşturabilir, düzenleyebilir veya silebilir. Sahip (owner) rolü
// her zaman en üstte sayılır ve kimlik bazlı korumaya sahiptir (is_owner).
package services

import (
	"context"
	"fmt"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/repository"
	"github.com/akinalpfdn/coreplane/ws"
)

// RoleService, rol yönetimi iş mantığı interface'i.
type RoleService interface {
	// GetAllByServer, bir sunucunun tüm rollerini döner (position DESC sıralı).
	GetAllByServer(ctx context.Context, serverID string) ([]models.Role, error)

	// Create, bir sunucuda yeni rol oluşturur (hiyerarşi kontrolü ile).
	Create(ctx context.Context, serverID, actorID string, req *models.CreateRoleRequest) (*models.Role, error)

	// Update, mevcut rolü günceller (hiyerarşi kontrolü ile).
	Update(ctx context.Context, serverID, actorID, roleID string, req *models.UpdateRoleRequest) (*models.Role, error)

	// Delete, rolü siler (hiyerarşi kontrolü + default/owner rol koruması).
	Delete(ctx context.Context, serverID, actorID, roleID string) error

	// ReorderRoles, rollerin sıralamasını toplu günceller (hiyerarşi kontrolü ile).
	// Actor sadece kendi en yüksek rolünden düşük position'daki rolleri sıralayabilir.
	// Owner ve default rol sıralama listesine dahil edilemez.
	ReorderRoles(ctx context.Context, serverID, actorID string, items []models.PositionUpdate) ([]models.Role, error)
}

type roleService struct {
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
	hub      ws.EventPublisher
}

// NewRoleService, RoleService implementasyonunu oluşturur.
func NewRoleService(
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	hub ws.EventPublisher,
) RoleService {
	return &roleService{
		roleRepo: roleRepo,
		userRepo: userRepo,
		hub:      hub,
	}
}

func (s *roleService) GetAllByServer(ctx context.Context, serverID string) ([]models.Role, error) {
	return s.roleRepo.GetAllByServer(ctx, serverID)
}

// Create, bir sunucuda yeni rol oluşturur.
//
// Hiyerarşi kontrolü:
// - Actor'un o sunucudaki en yüksek position'ı alınır
// - Yeni rolün position'ı actor'unkinden düşük olmalı
// - Position otomatik hesaplanır: actor position'ının hemen altı
func (s *roleService) Create(ctx context.Context, serverID, actorID string, req *models.CreateRoleRequest) (*models.Role, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	// Actor'un bu sunucudaki en yüksek position'ını al
	actorMaxPos, err := s.getActorMaxPosition(ctx, actorID, serverID)
	if err != nil {
		return nil, err
	}

	// Permission escalation kontrolü — actor sahip olmadığı yetkiyi yeni role veremez
	actorPerms, permErr := s.getActorEffectivePermissions(ctx, actorID, serverID)
	if permErr != nil {
		return nil, permErr
	}
	if !actorPerms.Has(models.PermAdmin) {
		escalated := req.Permissions &^ actorPerms
		if escalated != 0 {
			return nil, fmt.Errorf("%w: cannot grant permissions you do not have", pkg.ErrForbidden)
		}
	}

	// Yeni rolün position'ı: actor'un altında, mevcut rollerin en yükseğinin bir altı
	newPosition := actorMaxPos - 1
	if newPosition < 1 {
		newPosition = 1
	}

	role := &models.Role{
		ServerID:    serverID,
		Name:        req.Name,
		Color:       req.Color,
		Position:    newPosition,
		Permissions: req.Permissions,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpRoleCreate,
		Data: role,
	})

	return role, nil
}

// Update, mevcut rolü günceller.
//
// Hiyerarşi kontrolü:
// - Güncellenecek rolün position'ı actor'unkinden düşük olmalı
// - Actor kendinden yüksek permission atayamaz (admin hariç)
func (s *roleService) Update(ctx context.Context, serverID, actorID, roleID string, req *models.UpdateRoleRequest) (*models.Role, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.ServerID != serverID {
		return nil, pkg.ErrNotFound
	}

	// Owner rolü kimlik bazlı koruma — hiç kimse owner rolünü düzenleyemez
	if role.IsOwner {
		return nil, fmt.Errorf("%w: the Owner role cannot be modified", pkg.ErrForbidden)
	}

	// Hiyerarşi kontrolü
	actorMaxPos, err := s.getActorMaxPosition(ctx, actorID, serverID)
	if err != nil {
		return nil, err
	}

	if role.Position >= actorMaxPos {
		return nil, fmt.Errorf("%w: cannot modify a role with equal or higher position", pkg.ErrForbidden)
	}

	// Permission escalation kontrolü — actor sahip olmadığı yetkiyi veremez
	if req.Permissions != nil {
		actorPerms, permErr := s.getActorEffectivePermissions(ctx, actorID, serverID)
		if permErr != nil {
			return nil, permErr
		}
		newPerms := models.Permission(*req.Permissions)
		if !actorPerms.Has(models.PermAdmin) {
			escalated := newPerms &^ actorPerms
			if escalated != 0 {
				return nil, fmt.Errorf("%w: cannot grant permissions you do not have", pkg.ErrForbidden)
			}
		}
	}

	// Partial update
	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Color != nil {
		role.Color = *req.Color
	}
	if req.Permissions != nil {
		role.Permissions = *req.Permissions
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpRoleUpdate,
		Data: role,
	})

	return role, nil
}

// Delete, rolü siler.
//
// Güvenlik kontrolleri:
// 1. Owner ve default rol silinemez
// 2. Rol position >= actor position → forbidden
func (s *roleService) Delete(ctx context.Context, serverID, actorID, roleID string) error {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.ServerID != serverID {
		return pkg.ErrNotFound
	}

	if role.IsOwner {
		return fmt.Errorf("%w: the Owner role cannot be deleted", pkg.ErrForbidden)
	}

	if role.IsDefault {
		return fmt.Errorf("%w: cannot delete the default role", pkg.ErrBadRequest)
	}

	actorMaxPos, err := s.getActorMaxPosition(ctx, actorID, serverID)
	if err != nil {
		return err
	}

	if role.Position >= actorMaxPos {
		return fmt.Errorf("%w: cannot delete a role with equal or higher position", pkg.ErrForbidden)
	}

	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpRoleDelete,
		Data: map[string]string{"id": roleID},
	})

	return nil
}

// ReorderRoles, rollerin sıralamasını toplu olarak günceller.
//
// Hiyerarşi kuralları:
// 1. Actor'un bu sunucudaki en yüksek position'ı alınır (actorMaxPos)
// 2. Sıralanan her rolün MEVCUT position'ı actorMaxPos'tan düşük olmalı
// 3. Sıralanan her rolün YENİ position'ı da actorMaxPos'tan düşük olmalı
// 4. Owner ve default rol (is_default=true) sıralama listesine dahil edilemez
// 5. Hiçbir rol actorMaxPos'a eşit veya üstüne taşınamaz
func (s *roleService) ReorderRoles(ctx context.Context, serverID, actorID string, items []models.PositionUpdate) ([]models.Role, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items cannot be empty", pkg.ErrBadRequest)
	}

	actorMaxPos, err := s.getActorMaxPosition(ctx, actorID, serverID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		role, err := s.roleRepo.GetByID(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if role.ServerID != serverID {
			return nil, pkg.ErrNotFound
		}

		if role.IsOwner {
			return nil, fmt.Errorf("%w: the Owner role cannot be reordered", pkg.ErrForbidden)
		}

		if role.IsDefault {
			return nil, fmt.Errorf("%w: cannot reorder the default role", pkg.ErrBadRequest)
		}

		if role.Position >= actorMaxPos {
			return nil, fmt.Errorf("%w: cannot reorder a role with equal or higher position", pkg.ErrForbidden)
		}

		if item.Position >= actorMaxPos {
			return nil, fmt.Errorf("%w: cannot move a role to equal or higher position than your own", pkg.ErrForbidden)
		}
	}

	if err := s.roleRepo.UpdatePositions(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to update role positions: %w", err)
	}

	roles, err := s.roleRepo.GetAllByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload roles after reorder: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpRolesReorder,
		Data: roles,
	})

	return roles, nil
}

// getActorMaxPosition, actor kullanıcısının bu sunucudaki en yüksek rol position'ını döner.
func (s *roleService) getActorMaxPosition(ctx context.Context, actorID, serverID string) (int, error) {
	actorRoles, err := s.roleRepo.GetByUserIDAndServer(ctx, actorID, serverID)
	if err != nil {
		return 0, fmt.Errorf("failed to get actor roles: %w", err)
	}

	return models.HighestPosition(actorRoles), nil
}

// getActorEffectivePermissions, actor kullanıcısının bu sunucudaki tüm rollerinin
// OR'lanmış effective permission'ını hesaplar.
// Permission escalation kontrolünde kullanılır — actor sahip olmadığı yetkiyi veremez.
func (s *roleService) getActorEffectivePermissions(ctx context.Context, actorID, serverID string) (models.Permission, error) {
	roles, err := s.roleRepo.GetByUserIDAndServer(ctx, actorID, serverID)
	if err != nil {
		return 0, fmt.Errorf("failed to get actor roles: %w", err)
	}

	var perms models.Permission
	for _, r := range roles {
		perms |= r.Permissions
	}
	return perms, nil
}
