// Package services — InviteService: davet kodu iş mantığı.
//
// Davet kodları sunucuya özeldir (server-scoped): her kod tek bir sunucuya
// katılım sağlar. Oluşturma, listeleme ve silme MANAGE_INVITES yetkisi
// gerektirir; doğrulama (ValidateAndUse) ServerService.JoinServer tarafından
// çağrılır.
//
// Kod üretimi: crypto/rand ile 8 byte → hex string → 16 karakter benzersiz kod.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/repository"
)

// InviteService, davet kodu iş mantığı interface'i.
type InviteService interface {
	// Create, bir sunucu için yeni davet kodu oluşturur.
	// createdBy: daveti oluşturan kullanıcı ID'si.
	Create(ctx context.Context, serverID, createdBy string, req *models.CreateInviteRequest) (*models.Invite, error)

	// ListByServer, bir sunucunun tüm davet kodlarını oluşturan kullanıcı bilgisiyle döner.
	ListByServer(ctx context.Context, serverID string) ([]models.InviteWithCreator, error)

	// Delete, bir sunucunun davet kodunu siler.
	Delete(ctx context.Context, serverID, code string) error

	// ValidateAndUse, davet kodunu doğrular, kullanım sayısını artırır ve
	// kodun ait olduğu sunucuyu döner. ServerService.JoinServer tarafından çağrılır.
	ValidateAndUse(ctx context.Context, code string) (*models.Invite, error)
}

type inviteService struct {
	inviteRepo repository.InviteRepository
}

// NewInviteService, constructor.
func NewInviteService(inviteRepo repository.InviteRepository) InviteService {
	return &inviteService{inviteRepo: inviteRepo}
}

// Create, bir sunucu için yeni davet kodu oluşturur.
//
// İş kuralları:
// 1. Request validasyonu
// 2. Benzersiz kod üret (crypto/rand — kriptografik güvenli rastgele sayı)
// 3. Opsiyonel son kullanma tarihi hesapla
// 4. DB'ye kaydet
func (s *inviteService) Create(ctx context.Context, serverID, createdBy string, req *models.CreateInviteRequest) (*models.Invite, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	// Kod üret: 8 byte rastgele → 16 hex karakter
	// crypto/rand: Kriptografik güvenli rastgele sayı üretir (math/rand'den farklı).
	// Bu, davet kodlarının tahmin edilemez olmasını sağlar.
	codeBytes := make([]byte, 8)
	if _, err := rand.Read(codeBytes); err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}
	code := hex.EncodeToString(codeBytes)

	invite := &models.Invite{
		Code:      code,
		ServerID:  serverID,
		CreatedBy: createdBy,
		MaxUses:   req.MaxUses,
	}

	// ExpiresIn > 0 ise son kullanma tarihi hesapla
	if req.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(req.ExpiresIn) * time.Minute)
		invite.ExpiresAt = &expiresAt
	}

	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	// created_at set edilmediği için DB'den tekrar oku
	created, err := s.inviteRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get created invite: %w", err)
	}

	return created, nil
}

// ListByServer, bir sunucunun tüm davet kodlarını döner.
func (s *inviteService) ListByServer(ctx context.Context, serverID string) ([]models.InviteWithCreator, error) {
	invites, err := s.inviteRepo.ListByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	// nil slice yerine boş slice döndür (JSON'da [] olması için, null değil)
	if invites == nil {
		invites = []models.InviteWithCreator{}
	}

	return invites, nil
}

// Delete, bir sunucunun davet kodunu siler. Başka bir sunucuya ait kod silinemez.
func (s *inviteService) Delete(ctx context.Context, serverID, code string) error {
	invite, err := s.inviteRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if invite.ServerID != serverID {
		return pkg.ErrNotFound
	}

	if err := s.inviteRepo.Delete(ctx, code); err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}

// ValidateAndUse, davet kodunu doğrular ve kullanım sayısını artırır.
//
// Doğrulama kuralları:
// 1. Kod mevcut mu? (bulunamazsa → ErrBadRequest, geçersiz kod)
// 2. Süresi dolmuş mu? (ExpiresAt < now → expired)
// 3. Maksimum kullanıma ulaşılmış mı? (MaxUses > 0 && Uses >= MaxUses → depleted)
// 4. Tüm kontroller geçerse → uses++ ve invite'ı döner
func (s *inviteService) ValidateAndUse(ctx context.Context, code string) (*models.Invite, error) {
	invite, err := s.inviteRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid invite code", pkg.ErrBadRequest)
	}

	// Süre kontrolü
	if invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
		return nil, fmt.Errorf("%w: invite code has expired", pkg.ErrBadRequest)
	}

	// Kullanım limiti kontrolü
	if invite.MaxUses > 0 && invite.Uses >= invite.MaxUses {
		return nil, fmt.Errorf("%w: invite code has reached max uses", pkg.ErrBadRequest)
	}

	// Kullanım sayısını artır
	if err := s.inviteRepo.IncrementUses(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to increment invite uses: %w", err)
	}

	return invite, nil
}
