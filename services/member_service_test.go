package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
	"github.com/akinalpfdn/coreplane/ws"
)

// ─── Mocks ───
//
// Sadece bu testlerin ihtiyaç duyduğu metodlar implement edilir; kullanılmayan
// metodlar çağrılırsa panic eder, böylece beklenmeyen çağrılar testte yakalanır.

type mockUserRepo struct {
	users map[string]*models.User
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error { panic("not used") }
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return u, nil
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	panic("not used")
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	panic("not used")
}
func (m *mockUserRepo) GetAllByServer(ctx context.Context, serverID string) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}
func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}
func (m *mockUserRepo) UpdateStatus(ctx context.Context, userID string, status models.UserStatus) error {
	if u, ok := m.users[userID]; ok {
		u.Status = status
	}
	return nil
}
func (m *mockUserRepo) UpdateEmail(ctx context.Context, userID string, email *string) error {
	panic("not used")
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error {
	panic("not used")
}
func (m *mockUserRepo) Count(ctx context.Context) (int, error) { panic("not used") }
func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	panic("not used - Kick/Ban must use serverRepo.RemoveMember, not userRepo.Delete")
}
func (m *mockUserRepo) ListAllUsersWithStats(ctx context.Context) ([]models.AdminUserListItem, error) {
	panic("not used")
}

type mockRoleRepo struct {
	byUserAndServer map[string][]models.Role // key: userID+"/"+serverID
	byID            map[string]*models.Role
	defaultByServer map[string]*models.Role // key: serverID
	assigned        []string                // "userID/roleID/serverID"
	removed         []string                // "userID/roleID"
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{
		byUserAndServer: map[string][]models.Role{},
		byID:            map[string]*models.Role{},
		defaultByServer: map[string]*models.Role{},
	}
}

func (m *mockRoleRepo) setRoles(userID, serverID string, roles []models.Role) {
	m.byUserAndServer[userID+"/"+serverID] = roles
	for i := range roles {
		r := roles[i]
		m.byID[r.ID] = &r
	}
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id string) (*models.Role, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return r, nil
}
func (m *mockRoleRepo) GetAllByServer(ctx context.Context, serverID string) ([]models.Role, error) {
	panic("not used")
}
func (m *mockRoleRepo) GetDefaultByServer(ctx context.Context, serverID string) (*models.Role, error) {
	r, ok := m.defaultByServer[serverID]
	if !ok {
		panic("not used")
	}
	return r, nil
}
func (m *mockRoleRepo) GetByUserIDAndServer(ctx context.Context, userID, serverID string) ([]models.Role, error) {
	return m.byUserAndServer[userID+"/"+serverID], nil
}
func (m *mockRoleRepo) GetMaxPosition(ctx context.Context, serverID string) (int, error) {
	panic("not used")
}
func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error { panic("not used") }
func (m *mockRoleRepo) Update(ctx context.Context, role *models.Role) error { panic("not used") }
func (m *mockRoleRepo) Delete(ctx context.Context, id string) error         { panic("not used") }
func (m *mockRoleRepo) UpdatePositions(ctx context.Context, items []models.PositionUpdate) error {
	panic("not used")
}
func (m *mockRoleRepo) AssignToUser(ctx context.Context, userID, roleID, serverID string) error {
	m.assigned = append(m.assigned, userID+"/"+roleID+"/"+serverID)
	roles := m.byUserAndServer[userID+"/"+serverID]
	m.byUserAndServer[userID+"/"+serverID] = append(roles, *m.byID[roleID])
	return nil
}
func (m *mockRoleRepo) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	m.removed = append(m.removed, userID+"/"+roleID)
	return nil
}

type mockBanRepo struct {
	created []*models.Ban
	banned  map[string]bool // key: "serverID/userID" — used by JoinServer ban-check tests
}

func (m *mockBanRepo) Create(ctx context.Context, ban *models.Ban) error {
	m.created = append(m.created, ban)
	return nil
}
func (m *mockBanRepo) GetByUserID(ctx context.Context, serverID, userID string) (*models.Ban, error) {
	panic("not used")
}
func (m *mockBanRepo) GetAllByServer(ctx context.Context, serverID string) ([]models.Ban, error) {
	return nil, nil
}
func (m *mockBanRepo) Delete(ctx context.Context, serverID, userID string) error { return nil }
func (m *mockBanRepo) Exists(ctx context.Context, serverID, userID string) (bool, error) {
	return m.banned[serverID+"/"+userID], nil
}

type mockServerRepo struct {
	removed  []string // "serverID/userID"
	added    []string // "serverID/userID"
	servers  map[string]*models.Server
	isMember map[string]bool // key: "serverID/userID"
}

func (m *mockServerRepo) Create(ctx context.Context, server *models.Server) error { panic("not used") }
func (m *mockServerRepo) GetByID(ctx context.Context, id string) (*models.Server, error) {
	s, ok := m.servers[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return s, nil
}
func (m *mockServerRepo) Update(ctx context.Context, server *models.Server) error { panic("not used") }
func (m *mockServerRepo) UpdateIconURL(ctx context.Context, serverID, iconURL string) error {
	panic("not used")
}
func (m *mockServerRepo) UpdateLastVoiceActivity(ctx context.Context, serverID string) error {
	panic("not used")
}
func (m *mockServerRepo) Delete(ctx context.Context, id string) error { panic("not used") }
func (m *mockServerRepo) GetUserServers(ctx context.Context, userID string) ([]models.ServerListItem, error) {
	panic("not used")
}
func (m *mockServerRepo) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	return m.isMember[serverID+"/"+userID], nil
}
func (m *mockServerRepo) AddMember(ctx context.Context, serverID, userID string) error {
	m.added = append(m.added, serverID+"/"+userID)
	return nil
}
func (m *mockServerRepo) RemoveMember(ctx context.Context, serverID, userID string) error {
	m.removed = append(m.removed, serverID+"/"+userID)
	return nil
}
func (m *mockServerRepo) ReorderServers(ctx context.Context, userID string, serverIDs []string) error {
	panic("not used")
}
func (m *mockServerRepo) ListAllWithStats(ctx context.Context) ([]models.AdminServerListItem, error) {
	panic("not used")
}

type mockHub struct {
	broadcastToServerCalls []string
	broadcastToAllCalls    int
}

func (m *mockHub) BroadcastToAll(event ws.Event)                       { m.broadcastToAllCalls++ }
func (m *mockHub) BroadcastToAllExcept(excludeUserID string, e ws.Event) {}
func (m *mockHub) BroadcastToUser(userID string, e ws.Event)           {}
func (m *mockHub) BroadcastToUsers(userIDs []string, e ws.Event)       {}
func (m *mockHub) BroadcastToServer(serverID string, e ws.Event) {
	m.broadcastToServerCalls = append(m.broadcastToServerCalls, serverID)
}
func (m *mockHub) GetOnlineUserIDs() []string   { return nil }
func (m *mockHub) DisconnectUser(userID string) {}

type mockVoiceService struct {
	disconnected []string
}

func (m *mockVoiceService) GenerateToken(ctx context.Context, userID, username, displayName, channelID string) (*models.VoiceTokenResponse, error) {
	panic("not used")
}
func (m *mockVoiceService) JoinChannel(userID, username, displayName, avatarURL, channelID string) error {
	panic("not used")
}
func (m *mockVoiceService) LeaveChannel(userID string) error { panic("not used") }
func (m *mockVoiceService) UpdateState(userID string, isMuted, isDeafened, isStreaming *bool) error {
	panic("not used")
}
func (m *mockVoiceService) GetChannelParticipants(channelID string) []models.VoiceState {
	panic("not used")
}
func (m *mockVoiceService) GetUserVoiceState(userID string) *models.VoiceState { panic("not used") }
func (m *mockVoiceService) GetAllVoiceStates() []models.VoiceState            { panic("not used") }
func (m *mockVoiceService) DisconnectUser(userID string) {
	m.disconnected = append(m.disconnected, userID)
}
func (m *mockVoiceService) GetStreamCount(channelID string) int { panic("not used") }
func (m *mockVoiceService) AdminUpdateState(ctx context.Context, adminUserID, targetUserID string, isServerMuted, isServerDeafened *bool) error {
	panic("not used")
}
func (m *mockVoiceService) MoveUser(ctx context.Context, moverUserID, targetUserID, targetChannelID string) error {
	panic("not used")
}
func (m *mockVoiceService) AdminDisconnectUser(ctx context.Context, disconnecterUserID, targetUserID string) error {
	panic("not used")
}

// ─── Tests ───

const testServerID = "server-1"

func newTestMemberService() (*memberService, *mockUserRepo, *mockRoleRepo, *mockBanRepo, *mockServerRepo, *mockHub, *mockVoiceService) {
	userRepo := newMockUserRepo(
		&models.User{ID: "owner", Username: "owner"},
		&models.User{ID: "mod", Username: "mod"},
		&models.User{ID: "member", Username: "member"},
	)
	roleRepo := newMockRoleRepo()
	banRepo := &mockBanRepo{}
	serverRepo := &mockServerRepo{}
	hub := &mockHub{}
	voice := &mockVoiceService{}

	roleRepo.setRoles("owner", testServerID, []models.Role{{ID: "r-owner", ServerID: testServerID, IsOwner: true, Position: 100}})
	roleRepo.setRoles("mod", testServerID, []models.Role{{ID: "r-mod", ServerID: testServerID, Position: 10}})
	roleRepo.setRoles("member", testServerID, nil)

	svc := &memberService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		banRepo:      banRepo,
		serverRepo:   serverRepo,
		hub:          hub,
		voiceService: voice,
	}
	return svc, userRepo, roleRepo, banRepo, serverRepo, hub, voice
}

func TestKick_CannotKickSelf(t *testing.T) {
	svc, _, _, _, _, _, _ := newTestMemberService()

	err := svc.Kick(context.Background(), testServerID, "mod", "mod")
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestKick_CannotKickOwner(t *testing.T) {
	svc, _, _, _, _, _, _ := newTestMemberService()

	err := svc.Kick(context.Background(), testServerID, "mod", "owner")
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestKick_InsufficientHierarchy(t *testing.T) {
	svc, _, _, _, _, _, _ := newTestMemberService()

	// "member" has no roles (position 0), trying to kick "mod" (position 10) should fail.
	err := svc.Kick(context.Background(), testServerID, "member", "mod")
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestKick_Success(t *testing.T) {
	svc, _, _, _, serverRepo, hub, voice := newTestMemberService()

	if err := svc.Kick(context.Background(), testServerID, "mod", "member"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(serverRepo.removed) != 1 || serverRepo.removed[0] != testServerID+"/member" {
		t.Errorf("expected serverRepo.RemoveMember to be called with %s/member, got %v", testServerID, serverRepo.removed)
	}
	if len(voice.disconnected) != 1 || voice.disconnected[0] != "member" {
		t.Errorf("expected voiceService.DisconnectUser(member) to be called, got %v", voice.disconnected)
	}
	if len(hub.broadcastToServerCalls) != 1 || hub.broadcastToServerCalls[0] != testServerID {
		t.Errorf("expected BroadcastToServer(%s) to be called, got %v", testServerID, hub.broadcastToServerCalls)
	}
}

func TestBan_CreatesRecordAndRemovesMembership(t *testing.T) {
	svc, _, _, banRepo, serverRepo, _, voice := newTestMemberService()

	if err := svc.Ban(context.Background(), testServerID, "mod", "member", "spamming"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(banRepo.created) != 1 {
		t.Fatalf("expected one ban record, got %d", len(banRepo.created))
	}
	ban := banRepo.created[0]
	if ban.ServerID != testServerID || ban.UserID != "member" || ban.BannedBy != "mod" || ban.Username != "member" {
		t.Errorf("unexpected ban record: %+v", ban)
	}
	if len(serverRepo.removed) != 1 {
		t.Errorf("expected RemoveMember to be called")
	}
	if len(voice.disconnected) != 1 {
		t.Errorf("expected DisconnectUser to be called")
	}
}

func TestModifyRoles_RejectsRoleFromAnotherServer(t *testing.T) {
	svc, _, roleRepo, _, _, _, _ := newTestMemberService()
	roleRepo.byID["foreign-role"] = &models.Role{ID: "foreign-role", ServerID: "other-server", Position: 1}

	_, err := svc.ModifyRoles(context.Background(), testServerID, "mod", "member", []string{"foreign-role"})
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestModifyRoles_RejectsAssigningEqualOrHigherPosition(t *testing.T) {
	svc, _, roleRepo, _, _, _, _ := newTestMemberService()
	roleRepo.byID["high-role"] = &models.Role{ID: "high-role", ServerID: testServerID, Position: 50}

	_, err := svc.ModifyRoles(context.Background(), testServerID, "mod", "member", []string{"high-role"})
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestModifyRoles_AssignsAndBroadcasts(t *testing.T) {
	svc, _, roleRepo, _, _, hub, _ := newTestMemberService()
	roleRepo.byID["low-role"] = &models.Role{ID: "low-role", ServerID: testServerID, Name: "Helper", Position: 1}

	member, err := svc.ModifyRoles(context.Background(), testServerID, "mod", "member", []string{"low-role"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member == nil {
		t.Fatal("expected non-nil member")
	}

	if len(roleRepo.assigned) != 1 || roleRepo.assigned[0] != "member/low-role/"+testServerID {
		t.Errorf("expected role to be assigned, got %v", roleRepo.assigned)
	}
	if len(hub.broadcastToServerCalls) != 1 {
		t.Errorf("expected BroadcastToServer to be called once, got %d", len(hub.broadcastToServerCalls))
	}
}

func TestUpdateProfile_BroadcastsToAll(t *testing.T) {
	svc, _, _, _, _, hub, _ := newTestMemberService()
	name := "New Name"

	member, err := svc.UpdateProfile(context.Background(), "member", &models.UpdateProfileRequest{DisplayName: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.DisplayName == nil || *member.DisplayName != name {
		t.Errorf("expected display name to be updated")
	}
	if hub.broadcastToAllCalls != 1 {
		t.Errorf("expected BroadcastToAll to be called once, got %d", hub.broadcastToAllCalls)
	}
}
