// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern nedir?
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - Şifre hash'leme
//   - JWT token oluşturma
//   - Şifre sıfırlama token akışı
//   - İlk kullanıcı platform admin olsun kuralı
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/pkg/email"
	"github.com/akinalpfdn/coreplane/repository"
	"github.com/akinalpfdn/coreplane/ws"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// passwordResetTokenTTL, şifre sıfırlama token'ının geçerlilik süresi.
const passwordResetTokenTTL = 20 * time.Minute

// passwordResetCooldown, aynı kullanıcı için iki "şifremi unuttum" isteği arasındaki
// minimum süre. Email spam'ini önler.
const passwordResetCooldown = 90 * time.Second

// AuthService interface'i — dışarıya açık API.
// Handler bu interface'e bağımlıdır, concrete struct'a değil.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error)
	Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	ChangeEmail(ctx context.Context, userID, currentPassword, newEmail string) error
	// ForgotPassword, şifre sıfırlama emaili gönderir.
	// Dönen int, saniye cinsinden cooldown'dır (0 = email gönderildi, >0 = bekleme gerekiyor).
	ForgotPassword(ctx context.Context, emailAddr string) (int, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthTokens, login/register sonrası dönen token çifti.
type AuthTokens struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// authService, AuthService interface'inin implementasyonu.
// Tüm dependency'ler constructor injection ile alınır.
//
// Register artık hiçbir sunucuya üye eklemez, davet kodu doğrulamaz.
// Çoklu sunucu mimarisinde üyelik ServerService.JoinServer/CreateServer
// üzerinden kurulur — auth katmanı sadece kimlik doğrular.
type authService struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	resetTokenRepo repository.PasswordResetRepository
	hub            ws.EventPublisher
	emailSender    email.EmailSender
	jwtSecret      []byte
	accessExp      time.Duration
	refreshExp     time.Duration
}

// NewAuthService, constructor.
// jwtSecret: token imzalama anahtarı
// accessExpMinutes: access token ömrü (dakika)
// refreshExpDays: refresh token ömrü (gün)
// emailSender: şifre sıfırlama emaili göndermek için. nil ise ForgotPassword devre dışı kalır.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	resetTokenRepo repository.PasswordResetRepository,
	hub ws.EventPublisher,
	emailSender email.EmailSender,
	jwtSecret string,
	accessExpMinutes int,
	refreshExpDays int,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		resetTokenRepo: resetTokenRepo,
		hub:            hub,
		emailSender:    emailSender,
		jwtSecret:      []byte(jwtSecret),
		accessExp:      time.Duration(accessExpMinutes) * time.Minute,
		refreshExp:     time.Duration(refreshExpDays) * 24 * time.Hour,
	}
}

// Register, yeni kullanıcı kaydı oluşturur.
//
// İş kuralları:
// 1. Request validation
// 2. Şifreyi bcrypt ile hash'le (cost=12)
// 3. Kullanıcıyı DB'ye kaydet — platformdaki ilk kullanıcı otomatik platform admin olur
// 4. JWT token çifti oluştur
//
// Register hiçbir sunucuya üye eklemez — yeni kullanıcı, CreateServer veya
// JoinServer çağırana kadar hiçbir sunucuda yer almaz.
func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Platformdaki ilk kullanıcı mı? — bootstrap admin kuralı.
	existingCount, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayName *string
	if req.DisplayName != "" {
		displayName = &req.DisplayName
	}

	var userEmail *string
	if req.Email != "" {
		userEmail = &req.Email
	}

	user := &models.User{
		Username:        req.Username,
		DisplayName:     displayName,
		PasswordHash:    string(hash),
		Status:          models.UserStatusOnline,
		Email:           userEmail,
		Language:        "en",
		IsPlatformAdmin: existingCount == 0,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	return s.generateTokens(ctx, user)
}

// Login, kullanıcı girişi yapar.
//
// İş kuralları:
// 1. Username ile kullanıcıyı bul
// 2. Bcrypt ile şifre doğrula
// 3. JWT token çifti oluştur
//
// Ban kontrolü burada yapılmaz — ban artık sunucu üyeliği bazlı bir kavramdır,
// sunucuya giriş/WS katılım sırasında kontrol edilir, global login'i engellemez.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			// Güvenlik: "kullanıcı bulunamadı" demek yerine generic hata döneriz.
			// Böylece saldırgan hangi username'lerin var olduğunu öğrenemez.
			return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
	}

	if err := s.userRepo.UpdateStatus(ctx, user.ID, models.UserStatusOnline); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	user.Status = models.UserStatusOnline
	s.broadcastPresence(user.ID, models.UserStatusOnline)

	return s.generateTokens(ctx, user)
}

// RefreshToken, süresi dolmuş access token'ı yenilemek için kullanılır.
//
// Akış:
// 1. Refresh token ile DB'deki session'ı bul
// 2. Expire olmuş mu kontrol et
// 3. Eski session'ı sil (rotation — çalınan token tekrar kullanılamaz)
// 4. Yeni token çifti oluştur
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		if delErr := s.sessionRepo.DeleteByID(ctx, session.ID); delErr != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", delErr)
		}
		return nil, fmt.Errorf("%w: refresh token expired", pkg.ErrUnauthorized)
	}

	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old session: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return s.generateTokens(ctx, user)
}

// Logout, refresh token'ı iptal eder (session siler).
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil // Zaten yok, sorun değil
		}
		return err
	}

	if err := s.userRepo.UpdateStatus(ctx, session.UserID, models.UserStatusOffline); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	s.broadcastPresence(session.UserID, models.UserStatusOffline)

	return s.sessionRepo.DeleteByID(ctx, session.ID)
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
// Middleware tarafından her request'te çağrılır.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}

// ChangePassword, kullanıcının kendi şifresini değiştirmesi.
// Mevcut şifre doğrulanmadan yeni şifre kabul edilmez.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len([]rune(newPassword)) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", pkg.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", pkg.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 12)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

// ChangeEmail, kullanıcının kendi email adresini değiştirmesi/kaldırması.
// newEmail boş string ise email kaldırılır (NULL). Güvenlik: şifre doğrulaması zorunlu.
func (s *authService) ChangeEmail(ctx context.Context, userID, currentPassword, newEmail string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("%w: password is incorrect", pkg.ErrUnauthorized)
	}

	var emailPtr *string
	if newEmail != "" {
		emailPtr = &newEmail
	}

	return s.userRepo.UpdateEmail(ctx, userID, emailPtr)
}

// ForgotPassword, şifre sıfırlama emaili gönderir.
//
// Güvenlik: email DB'de bulunamasa da aynı (cooldown=0) yanıt döner — enumeration koruması.
// Cooldown: kullanıcının son token'ı passwordResetCooldown içinde oluşturulduysa,
// yeni email gönderilmez, kalan saniye döner.
func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) (int, error) {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	latest, err := s.resetTokenRepo.GetLatestByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return 0, fmt.Errorf("failed to check reset cooldown: %w", err)
	}
	if err == nil {
		elapsed := time.Since(latest.CreatedAt)
		if elapsed < passwordResetCooldown {
			remaining := passwordResetCooldown - elapsed
			return int(remaining.Seconds()) + 1, nil
		}
	}

	// Fırsat temizliği — süresi dolmuş token'ları temizle.
	if err := s.resetTokenRepo.DeleteExpired(ctx); err != nil {
		return 0, fmt.Errorf("failed to clean expired tokens: %w", err)
	}
	if err := s.resetTokenRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return 0, fmt.Errorf("failed to clean previous tokens: %w", err)
	}

	rawToken := make([]byte, 32)
	if _, err := rand.Read(rawToken); err != nil {
		return 0, fmt.Errorf("failed to generate reset token: %w", err)
	}
	plainToken := hex.EncodeToString(rawToken)
	hashed := sha256.Sum256([]byte(plainToken))

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(hashed[:]),
		ExpiresAt: time.Now().Add(passwordResetTokenTTL),
	}

	if err := s.resetTokenRepo.Create(ctx, resetToken); err != nil {
		return 0, fmt.Errorf("failed to create reset token: %w", err)
	}

	if s.emailSender == nil {
		return 0, nil
	}

	toEmail := emailAddr
	if user.Email != nil {
		toEmail = *user.Email
	}
	if err := s.emailSender.SendPasswordReset(ctx, toEmail, plainToken); err != nil {
		return 0, fmt.Errorf("failed to send reset email: %w", err)
	}

	return 0, nil
}

// ResetPassword, email'deki token ile şifre sıfırlar.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hashed := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hashed[:])

	resetToken, err := s.resetTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrBadRequest)
		}
		return err
	}

	if time.Now().After(resetToken.ExpiresAt) {
		_ = s.resetTokenRepo.DeleteByID(ctx, resetToken.ID)
		return fmt.Errorf("%w: reset token has expired", pkg.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 12)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, resetToken.UserID, string(hash)); err != nil {
		return err
	}

	return s.resetTokenRepo.DeleteByID(ctx, resetToken.ID)
}

// ─── Private Helpers ───

// broadcastPresence, kullanıcının online/offline durumunu tüm bağlı client'lara duyurur.
// Presence sunucu bazlı değildir — kullanıcı hangi sunuculardaysa hepsinde görünür,
// bu yüzden BroadcastToAll kullanılır (üyelik filtrelemesi client tarafında yapılır).
func (s *authService) broadcastPresence(userID string, status models.UserStatus) {
	s.hub.BroadcastToAll(ws.Event{
		Op: ws.OpPresence,
		Data: map[string]string{
			"user_id": userID,
			"status":  string(status),
		},
	})
}

// generateTokens, access + refresh token çifti oluşturur.
func (s *authService) generateTokens(ctx context.Context, user *models.User) (*AuthTokens, error) {
	now := time.Now()
	accessClaims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "mqvi",
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshBytes := make([]byte, 32)
	if _, err := rand.Read(refreshBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshString := hex.EncodeToString(refreshBytes)

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshString,
		ExpiresAt:    now.Add(s.refreshExp),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Password hash'i yanıta dahil etme
	user.PasswordHash = ""

	return &AuthTokens{
		AccessToken:  accessString,
		RefreshToken: refreshString,
		User:         *user,
	}, nil
}
