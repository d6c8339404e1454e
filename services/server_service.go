// Package services — ServerService: çoklu sunucu ("guild") iş mantığı.
//
// Multi-server mimarinin kalbi: sunucu CRUD, üyelik, LiveKit instance atama.
//
// CreateServer akışı:
//  1. host_type="mqvi_hosted" → en az yüklü platform LiveKit instance'ı seç
//     host_type="self_hosted" → kullanıcının verdiği credential'larla yeni instance oluştur
//  2. Sunucu kaydı oluştur (owner_id = kurucu kullanıcı)
//  3. Varsayılan roller: "Owner" (is_owner, tüm yetkiler) ve "@everyone" (is_default)
//  4. Varsayılan metin kanalı "genel"
//  5. Kurucuyu üye olarak ekle ve Owner rolünü ata
//
// Yalnızca rol oluşturma (adım 3) tek bir transaction içinde çalışır — role repo
// database.TxQuerier kabul ettiği için tx'e bağlanabilir. Sunucu kaydı, kanal ve
// üyelik adımları *sql.DB'ye bağlı repo'larla ayrı işlemler olarak yürütülür
// (bkz. database/tx.go).
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalpfdn/coreplane/database"
	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/pkg/crypto"
	"github.com/akinalpfdn/coreplane/repository"
	"github.com/akinalpfdn/coreplane/ws"
)

// defaultEveryonePermissions, yeni sunucuda @everyone rolüne atanan varsayılan yetkiler.
// Herkes kanalları görebilir, mesaj atabilir/okuyabilir, ses kanalına bağlanıp konuşabilir.
const defaultEveryonePermissions = models.PermViewChannel | models.PermReadMessages |
	models.PermSendMessages | models.PermConnectVoice | models.PermSpeak

// ServerService, sunucu yönetimi iş mantığı interface'i.
type ServerService interface {
	// ListMyServers, kullanıcının üye olduğu sunucuların sidebar listesini döner.
	ListMyServers(ctx context.Context, userID string) ([]models.ServerListItem, error)

	// CreateServer, yeni bir sunucu oluşturur: LiveKit instance ataması,
	// varsayılan rol/kanal seed'i ve kurucu üyeliği tek akışta yapılır.
	CreateServer(ctx context.Context, ownerID string, req *models.CreateServerRequest) (*models.Server, error)

	// JoinServer, davet koduyla bir sunucuya katılır.
	JoinServer(ctx context.Context, userID string, req *models.JoinServerRequest) (*models.Server, error)

	// ReorderServers, kullanıcının sidebar sunucu sıralamasını günceller.
	ReorderServers(ctx context.Context, userID string, req *models.ReorderServersRequest) error

	// GetServer, bir sunucunun bilgisini döner. Üyelik ServerMembershipMiddleware'de kontrol edilir.
	GetServer(ctx context.Context, serverID string) (*models.Server, error)

	// UpdateServer, sunucu bilgisini günceller ve sunucu üyelerine broadcast eder.
	UpdateServer(ctx context.Context, serverID string, req *models.UpdateServerRequest) (*models.Server, error)

	// UpdateServerIcon, sunucu ikonunu günceller. AvatarHandler tarafından çağrılır.
	UpdateServerIcon(ctx context.Context, serverID, iconURL string) (*models.Server, error)

	// DeleteServer, bir sunucuyu siler. Sadece sahip (owner) silebilir.
	DeleteServer(ctx context.Context, serverID, actorID string) error

	// LeaveServer, bir kullanıcının sunucu üyeliğini sonlandırır. Sahip ayrılamaz — sunucudan
	// çıkmanın tek yolu sunucuyu silmektir; sahiplik devri yoktur.
	LeaveServer(ctx context.Context, serverID, userID string) error

	// GetLiveKitSettings, sunucunun bağlı olduğu LiveKit instance'ın URL ve
	// tip bilgisini döner (credential'lar asla dahil edilmez).
	GetLiveKitSettings(ctx context.Context, serverID string) (*models.LiveKitSettingsResponse, error)
}

type serverService struct {
	db            *sql.DB
	serverRepo    repository.ServerRepository
	livekitRepo   repository.LiveKitRepository
	roleRepo      repository.RoleRepository
	channelRepo   repository.ChannelRepository
	categoryRepo  repository.CategoryRepository
	userRepo      repository.UserRepository
	banRepo       repository.BanRepository
	inviteService InviteService
	hub           ws.EventPublisher
	encryptionKey []byte
}

// NewServerService, constructor — interface döner.
func NewServerService(
	db *sql.DB,
	serverRepo repository.ServerRepository,
	livekitRepo repository.LiveKitRepository,
	roleRepo repository.RoleRepository,
	channelRepo repository.ChannelRepository,
	categoryRepo repository.CategoryRepository,
	userRepo repository.UserRepository,
	banRepo repository.BanRepository,
	inviteService InviteService,
	hub ws.EventPublisher,
	encryptionKey []byte,
) ServerService {
	return &serverService{
		db:            db,
		serverRepo:    serverRepo,
		livekitRepo:   livekitRepo,
		roleRepo:      roleRepo,
		channelRepo:   channelRepo,
		categoryRepo:  categoryRepo,
		userRepo:      userRepo,
		banRepo:       banRepo,
		inviteService: inviteService,
		hub:           hub,
		encryptionKey: encryptionKey,
	}
}

func (s *serverService) ListMyServers(ctx context.Context, userID string) ([]models.ServerListItem, error) {
	servers, err := s.serverRepo.GetUserServers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	if servers == nil {
		servers = []models.ServerListItem{}
	}
	return servers, nil
}

// CreateServer, yeni bir sunucu oluşturur.
func (s *serverService) CreateServer(ctx context.Context, ownerID string, req *models.CreateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	instanceID, err := s.resolveLiveKitInstance(ctx, req)
	if err != nil {
		return nil, err
	}

	server := &models.Server{
		Name:              req.Name,
		OwnerID:           ownerID,
		InviteRequired:    false,
		LiveKitInstanceID: &instanceID,
	}
	if err := s.serverRepo.Create(ctx, server); err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	if err := s.seedDefaults(ctx, server.ID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to seed new server: %w", err)
	}

	return server, nil
}

// resolveLiveKitInstance, host_type'a göre sunucunun bağlanacağı LiveKit instance'ını belirler.
func (s *serverService) resolveLiveKitInstance(ctx context.Context, req *models.CreateServerRequest) (string, error) {
	if req.HostType == "self_hosted" {
		encKey, err := crypto.Encrypt(req.LiveKitKey, s.encryptionKey)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt livekit key: %w", err)
		}
		encSecret, err := crypto.Encrypt(req.LiveKitSecret, s.encryptionKey)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt livekit secret: %w", err)
		}

		instance := &models.LiveKitInstance{
			URL:               req.LiveKitURL,
			APIKey:            encKey,
			APISecret:         encSecret,
			IsPlatformManaged: false,
		}
		if err := s.livekitRepo.Create(ctx, instance); err != nil {
			return "", fmt.Errorf("failed to create self-hosted livekit instance: %w", err)
		}
		return instance.ID, nil
	}

	// mqvi_hosted — en az yüklü platform instance'ını kullan
	instance, err := s.livekitRepo.GetLeastLoadedPlatformInstance(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: no platform livekit instance available", pkg.ErrBadRequest)
	}
	if err := s.livekitRepo.IncrementServerCount(ctx, instance.ID); err != nil {
		return "", fmt.Errorf("failed to reserve livekit capacity: %w", err)
	}
	return instance.ID, nil
}

// seedDefaults, yeni bir sunucuya varsayılan rolleri, kanalı ve kurucu üyeliğini ekler.
//
// Owner ve @everyone rolleri tek bir transaction içinde oluşturulur — role repo
// database.TxQuerier kabul ettiği için tx'e bağlı bir örneği burada kurulur.
func (s *serverService) seedDefaults(ctx context.Context, serverID, ownerID string) error {
	var ownerRole, everyoneRole models.Role

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txRoleRepo := repository.NewSQLiteRoleRepo(tx)

		ownerRole = models.Role{
			ServerID:    serverID,
			Name:        "Owner",
			Color:       "#f1c40f",
			Position:    1000,
			Permissions: models.PermAll,
			IsOwner:     true,
		}
		if err := txRoleRepo.Create(ctx, &ownerRole); err != nil {
			return fmt.Errorf("failed to create owner role: %w", err)
		}

		everyoneRole = models.Role{
			ServerID:    serverID,
			Name:        "@everyone",
			Color:       "#99aab5",
			Position:    0,
			Permissions: defaultEveryonePermissions,
			IsDefault:   true,
		}
		if err := txRoleRepo.Create(ctx, &everyoneRole); err != nil {
			return fmt.Errorf("failed to create default role: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.roleRepo.AssignToUser(ctx, ownerID, ownerRole.ID, serverID); err != nil {
		return fmt.Errorf("failed to assign owner role: %w", err)
	}

	generalChannel := &models.Channel{
		ServerID: serverID,
		Name:     "genel",
		Type:     models.ChannelTypeText,
		Position: 0,
	}
	if err := s.channelRepo.Create(ctx, generalChannel); err != nil {
		return fmt.Errorf("failed to create default channel: %w", err)
	}

	if err := s.serverRepo.AddMember(ctx, serverID, ownerID); err != nil {
		return fmt.Errorf("failed to add owner as member: %w", err)
	}

	return nil
}

// JoinServer, davet koduyla bir sunucuya katılır.
func (s *serverService) JoinServer(ctx context.Context, userID string, req *models.JoinServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	invite, err := s.inviteService.ValidateAndUse(ctx, req.InviteCode)
	if err != nil {
		return nil, err
	}

	server, err := s.serverRepo.GetByID(ctx, invite.ServerID)
	if err != nil {
		return nil, err
	}

	banned, err := s.banRepo.Exists(ctx, server.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ban status: %w", err)
	}
	if banned {
		return nil, fmt.Errorf("%w: you are banned from this server", pkg.ErrForbidden)
	}

	isMember, err := s.serverRepo.IsMember(ctx, server.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return server, nil
	}

	defaultRole, err := s.roleRepo.GetDefaultByServer(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get default role: %w", err)
	}

	if err := s.serverRepo.AddMember(ctx, server.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	if err := s.roleRepo.AssignToUser(ctx, userID, defaultRole.ID, server.ID); err != nil {
		return nil, fmt.Errorf("failed to assign default role: %w", err)
	}

	s.hub.BroadcastToServer(server.ID, ws.Event{
		Op:   ws.OpMemberJoin,
		Data: map[string]string{"server_id": server.ID, "user_id": userID},
	})

	return server, nil
}

func (s *serverService) ReorderServers(ctx context.Context, userID string, req *models.ReorderServersRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	if err := s.serverRepo.ReorderServers(ctx, userID, req.ServerIDs); err != nil {
		return fmt.Errorf("failed to reorder servers: %w", err)
	}
	return nil
}

func (s *serverService) GetServer(ctx context.Context, serverID string) (*models.Server, error) {
	return s.serverRepo.GetByID(ctx, serverID)
}

func (s *serverService) UpdateServer(ctx context.Context, serverID string, req *models.UpdateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		server.Name = *req.Name
	}
	if req.InviteRequired != nil {
		server.InviteRequired = *req.InviteRequired
	}

	if err := s.serverRepo.Update(ctx, server); err != nil {
		return nil, fmt.Errorf("failed to update server: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpServerUpdate,
		Data: server,
	})

	return server, nil
}

func (s *serverService) UpdateServerIcon(ctx context.Context, serverID, iconURL string) (*models.Server, error) {
	if err := s.serverRepo.UpdateIconURL(ctx, serverID, iconURL); err != nil {
		return nil, fmt.Errorf("failed to update server icon: %w", err)
	}

	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpServerUpdate,
		Data: server,
	})

	return server, nil
}

// DeleteServer, bir sunucuyu siler. Sadece sahip silebilir.
// Bağlı kategori/kanal/rol/üyelik kayıtları DB şemasındaki ON DELETE CASCADE
// ile otomatik temizlenir.
func (s *serverService) DeleteServer(ctx context.Context, serverID, actorID string) error {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server.OwnerID != actorID {
		return fmt.Errorf("%w: only the server owner can delete the server", pkg.ErrForbidden)
	}

	if err := s.serverRepo.Delete(ctx, serverID); err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	if server.LiveKitInstanceID != nil {
		// Kapasite sayacı senkronizasyon dışı kalabilir ama sunucu zaten silindi —
		// bu hatayı bloklamıyoruz.
		_ = s.livekitRepo.DecrementServerCount(ctx, *server.LiveKitInstanceID)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpServerDelete,
		Data: map[string]string{"id": serverID},
	})

	return nil
}

// LeaveServer, bir kullanıcının sunucu üyeliğini sonlandırır.
func (s *serverService) LeaveServer(ctx context.Context, serverID, userID string) error {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server.OwnerID == userID {
		return fmt.Errorf("%w: the owner cannot leave their own server, delete it instead", pkg.ErrBadRequest)
	}

	if err := s.serverRepo.RemoveMember(ctx, serverID, userID); err != nil {
		return fmt.Errorf("failed to leave server: %w", err)
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpMemberLeave,
		Data: map[string]string{"server_id": serverID, "user_id": userID},
	})

	return nil
}

func (s *serverService) GetLiveKitSettings(ctx context.Context, serverID string) (*models.LiveKitSettingsResponse, error) {
	instance, err := s.livekitRepo.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	return &models.LiveKitSettingsResponse{
		URL:               instance.URL,
		IsPlatformManaged: instance.IsPlatformManaged,
	}, nil
}
