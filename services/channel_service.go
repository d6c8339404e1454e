package services

import (
	"context"
	"fmt"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/repository"
	"github.com/akinalpfdn/coreplane/ws"
)

// ChannelService, kanal iş mantığı interface'i.
// Tüm operasyonlar server-scoped — her sunucu kendi kanal/kategori listesine sahiptir.
type ChannelService interface {
	// GetAllGrouped, bir sunucunun kanallarını kategorilere göre gruplanmış döner.
	// ViewChannel yetkisi olmayan kanallar userID'ye göre filtrelenir.
	GetAllGrouped(ctx context.Context, serverID, userID string) ([]models.CategoryWithChannels, error)
	Create(ctx context.Context, serverID string, req *models.CreateChannelRequest) (*models.Channel, error)
	Update(ctx context.Context, id string, req *models.UpdateChannelRequest) (*models.Channel, error)
	Delete(ctx context.Context, id string) error
	// ReorderChannels, kanalların sırasını toplu olarak günceller.
	// Transaction ile atomik — ya hepsi güncellenir ya hiçbiri.
	// Başarılıysa güncel CategoryWithChannels listesini WS ile broadcast eder.
	ReorderChannels(ctx context.Context, serverID string, req *models.ReorderChannelsRequest, userID string) ([]models.CategoryWithChannels, error)
}

// channelService, ChannelService'in implementasyonu.
// Tüm dependency'ler interface olarak tutulur (Dependency Inversion).
type channelService struct {
	channelRepo  repository.ChannelRepository
	categoryRepo repository.CategoryRepository
	hub          ws.EventPublisher
	permService  ChannelPermissionService
}

// NewChannelService, constructor — interface döner.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	categoryRepo repository.CategoryRepository,
	hub ws.EventPublisher,
	permService ChannelPermissionService,
) ChannelService {
	return &channelService{
		channelRepo:  channelRepo,
		categoryRepo: categoryRepo,
		hub:          hub,
		permService:  permService,
	}
}

// GetAllGrouped, bir sunucunun kanallarını kategorilere göre gruplanmış olarak döner.
// Frontend sidebar'da bu yapıyı kullanarak collapsible kategori listeleri oluşturur.
// ViewChannel yetkisi olmayan kanallar filtrelenir (sidebar'da gizli kalır).
func (s *channelService) GetAllGrouped(ctx context.Context, serverID, userID string) ([]models.CategoryWithChannels, error) {
	categories, err := s.categoryRepo.GetAllByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	channels, err := s.channelRepo.GetAllByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	filter, err := s.permService.BuildVisibilityFilter(ctx, userID, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to build channel visibility filter: %w", err)
	}

	// Kanalları category_id'ye göre grupla, görünmeyenleri atla
	channelsByCategory := make(map[string][]models.Channel)
	for _, ch := range channels {
		if !filter.Allows(ch.ID) {
			continue
		}
		catID := ""
		if ch.CategoryID != nil {
			catID = *ch.CategoryID
		}
		channelsByCategory[catID] = append(channelsByCategory[catID], ch)
	}

	// Kategorileri kanallarıyla eşleştir
	result := make([]models.CategoryWithChannels, 0, len(categories))
	for _, cat := range categories {
		cwc := models.CategoryWithChannels{
			Category: cat,
			Channels: channelsByCategory[cat.ID],
		}
		if cwc.Channels == nil {
			cwc.Channels = []models.Channel{} // null yerine boş dizi — frontend parsing kolaylığı
		}
		result = append(result, cwc)
	}

	return result, nil
}

// Create, yeni bir kanal oluşturur ve o sunucudaki tüm bağlı kullanıcılara bildirir.
func (s *channelService) Create(ctx context.Context, serverID string, req *models.CreateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Kategori var mı kontrol et
	if req.CategoryID != "" {
		if _, err := s.categoryRepo.GetByID(ctx, req.CategoryID); err != nil {
			return nil, fmt.Errorf("%w: category not found", pkg.ErrBadRequest)
		}
	}

	// Position: kategorideki en yüksek position + 1
	maxPos, err := s.channelRepo.GetMaxPosition(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max position: %w", err)
	}

	channel := &models.Channel{
		ServerID: serverID,
		Name:     req.Name,
		Type:     models.ChannelType(req.Type),
		Position: maxPos + 1,
	}

	if req.CategoryID != "" {
		channel.CategoryID = &req.CategoryID
	}
	if req.Topic != "" {
		channel.Topic = &req.Topic
	}

	// Varsayılan değerler (voice kanallar için)
	if channel.Type == models.ChannelTypeVoice {
		channel.Bitrate = 64000
	}

	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// WebSocket broadcast — sadece bu sunucuya bağlı kullanıcılar yeni kanalı görür
	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpChannelCreate,
		Data: channel,
	})

	return channel, nil
}

// Update, mevcut bir kanalı günceller.
func (s *channelService) Update(ctx context.Context, id string, req *models.UpdateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	channel, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Sadece gelen alanları güncelle (partial update pattern)
	if req.Name != nil {
		channel.Name = *req.Name
	}
	if req.Topic != nil {
		channel.Topic = req.Topic
	}

	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return nil, err
	}

	s.hub.BroadcastToServer(channel.ServerID, ws.Event{
		Op:   ws.OpChannelUpdate,
		Data: channel,
	})

	return channel, nil
}

// Delete, bir kanalı siler.
func (s *channelService) Delete(ctx context.Context, id string) error {
	channel, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.channelRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.hub.BroadcastToServer(channel.ServerID, ws.Event{
		Op:   ws.OpChannelDelete,
		Data: map[string]string{"id": id},
	})

	return nil
}

// ReorderChannels, kanalların sırasını toplu olarak günceller.
//
// Akış:
// 1. Validation — items boş olmamalı, ID'ler benzersiz ve position >= 0
// 2. Repository'ye ilet — transaction ile atomic güncelleme
// 3. Güncel CategoryWithChannels listesini DB'den yeniden yükle
// 4. WS broadcast — sunucudaki tüm client'lar güncel sırayı alır
func (s *channelService) ReorderChannels(ctx context.Context, serverID string, req *models.ReorderChannelsRequest, userID string) ([]models.CategoryWithChannels, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if err := s.channelRepo.UpdatePositions(ctx, req.Items); err != nil {
		return nil, fmt.Errorf("failed to update channel positions: %w", err)
	}

	// Güncel listeyi DB'den yeniden yükle (position değerleri değişti)
	grouped, err := s.GetAllGrouped(ctx, serverID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload channels after reorder: %w", err)
	}

	// WS broadcast — sunucudaki tüm client'lar güncel CategoryWithChannels listesini alır
	s.hub.BroadcastToServer(serverID, ws.Event{
		Op:   ws.OpChannelReorder,
		Data: grouped,
	})

	return grouped, nil
}
