package repository

import (
	"context"

	"github.com/akinalpfdn/coreplane/models"
)

// BanRepository, ban (yasaklama) veritabanı işlemleri için interface.
//
// Interface Segregation: Bu interface sadece ban ile ilgili operasyonları tanımlar.
// UserRepository'ye eklemek yerine ayrı tutuyoruz çünkü:
// 1. Ban ve User farklı domain'ler — sorumlulukları ayrı
// 2. Ban kontrolü farklı yerlerde yapılır (sunucuya katılma, WS connect)
// 3. Test'te sadece ban davranışını mock'lamak kolaylaşır
//
// Çoklu sunucu mimarisinde ban artık (server_id, user_id) kompozit anahtarla
// tutulur — bir kullanıcı bir sunucudan banlanması diğer sunucularını etkilemez.
type BanRepository interface {
	// Create, yeni bir ban kaydı oluşturur (serverID + userID kompozit).
	Create(ctx context.Context, ban *models.Ban) error

	// GetByUserID, belirli bir kullanıcının bir sunucudaki ban kaydını döner.
	GetByUserID(ctx context.Context, serverID, userID string) (*models.Ban, error)

	// GetAllByServer, bir sunucunun tüm ban kayıtlarını döner.
	GetAllByServer(ctx context.Context, serverID string) ([]models.Ban, error)

	// Delete, bir sunucudaki ban kaydını siler (unban).
	Delete(ctx context.Context, serverID, userID string) error

	// Exists, kullanıcının belirli bir sunucuda banlı olup olmadığını kontrol eder.
	// GetByUserID'den farkı: sadece boolean döner, tüm kaydı yüklemez.
	Exists(ctx context.Context, serverID, userID string) (bool, error)
}
