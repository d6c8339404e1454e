// Package repository — ServerRepository interface.
//
// Çoklu sunucu mimarisi: her sunucu bağımsız bir kayıt, kullanıcılar
// server_members ara tablosu üzerinden birden fazla sunucuya üye olabilir.
package repository

import (
	"context"

	"github.com/akinalpfdn/coreplane/models"
)

// ServerRepository, sunucu veritabanı işlemleri için interface.
type ServerRepository interface {
	// Create, yeni bir sunucu kaydı oluşturur. ID SQLite'ta randomblob ile random üretilir.
	Create(ctx context.Context, server *models.Server) error

	// GetByID, ID ile sunucu döner.
	GetByID(ctx context.Context, id string) (*models.Server, error)

	// Update, sunucu bilgisini günceller (isim, ikon, invite_required).
	Update(ctx context.Context, server *models.Server) error

	// UpdateIconURL, sadece icon_url alanını günceller.
	UpdateIconURL(ctx context.Context, serverID, iconURL string) error

	// UpdateLastVoiceActivity, sunucunun son ses aktivite zamanını şimdiye günceller.
	// Admin panelde "last_activity" göstergesi için — ses kanalına katılım/ayrılma anında çağrılır.
	UpdateLastVoiceActivity(ctx context.Context, serverID string) error

	// Delete, bir sunucuyu ve ona bağlı tüm verileri siler.
	Delete(ctx context.Context, id string) error

	// GetUserServers, bir kullanıcının üye olduğu sunucuların minimal listesini döner.
	// Sidebar sıralaması için position'a göre sıralıdır.
	GetUserServers(ctx context.Context, userID string) ([]models.ServerListItem, error)

	// IsMember, kullanıcının bir sunucuya üye olup olmadığını kontrol eder.
	IsMember(ctx context.Context, serverID, userID string) (bool, error)

	// AddMember, kullanıcıyı bir sunucuya üye olarak ekler, position'ı listenin sonuna koyar.
	AddMember(ctx context.Context, serverID, userID string) error

	// RemoveMember, kullanıcıyı bir sunucunun üyeliğinden çıkarır.
	RemoveMember(ctx context.Context, serverID, userID string) error

	// ReorderServers, bir kullanıcının sunucu listesi sırasını toplu günceller.
	ReorderServers(ctx context.Context, userID string, serverIDs []string) error

	// ListAllWithStats, platformdaki tüm sunucuları istatistikleriyle döner (admin panel).
	ListAllWithStats(ctx context.Context) ([]models.AdminServerListItem, error)
}
