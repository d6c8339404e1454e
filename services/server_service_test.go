package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
)

type mockInviteService struct {
	invite    *models.Invite
	validated []string // invite codes passed to ValidateAndUse
}

func (m *mockInviteService) Create(ctx context.Context, serverID, createdBy string, req *models.CreateInviteRequest) (*models.Invite, error) {
	panic("not used")
}
func (m *mockInviteService) ListByServer(ctx context.Context, serverID string) ([]models.InviteWithCreator, error) {
	panic("not used")
}
func (m *mockInviteService) Delete(ctx context.Context, serverID, code string) error {
	panic("not used")
}
func (m *mockInviteService) ValidateAndUse(ctx context.Context, code string) (*models.Invite, error) {
	m.validated = append(m.validated, code)
	if m.invite == nil {
		return nil, pkg.ErrBadRequest
	}
	return m.invite, nil
}

const joinTestServerID = "join-server-1"

func newTestServerServiceForJoin() (*serverService, *mockServerRepo, *mockRoleRepo, *mockBanRepo, *mockInviteService, *mockHub) {
	serverRepo := &mockServerRepo{
		servers: map[string]*models.Server{
			joinTestServerID: {ID: joinTestServerID, Name: "Test Server"},
		},
		isMember: map[string]bool{},
	}
	roleRepo := newMockRoleRepo()
	roleRepo.defaultByServer[joinTestServerID] = &models.Role{ID: "r-everyone", ServerID: joinTestServerID, IsDefault: true}
	roleRepo.byID["r-everyone"] = roleRepo.defaultByServer[joinTestServerID]
	banRepo := &mockBanRepo{banned: map[string]bool{}}
	invites := &mockInviteService{invite: &models.Invite{Code: "abc123", ServerID: joinTestServerID}}
	hub := &mockHub{}

	svc := &serverService{
		serverRepo:    serverRepo,
		roleRepo:      roleRepo,
		banRepo:       banRepo,
		inviteService: invites,
		hub:           hub,
	}
	return svc, serverRepo, roleRepo, banRepo, invites, hub
}

func TestJoinServer_RejectsBannedUser(t *testing.T) {
	svc, _, _, banRepo, _, _ := newTestServerServiceForJoin()
	banRepo.banned[joinTestServerID+"/evicted"] = true

	_, err := svc.JoinServer(context.Background(), "evicted", &models.JoinServerRequest{InviteCode: "abc123"})
	if !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for banned user, got %v", err)
	}
}

func TestJoinServer_AlreadyMemberReturnsServerWithoutReassigning(t *testing.T) {
	svc, serverRepo, _, _, _, hub := newTestServerServiceForJoin()
	serverRepo.isMember[joinTestServerID+"/existing"] = true

	server, err := svc.JoinServer(context.Background(), "existing", &models.JoinServerRequest{InviteCode: "abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.ID != joinTestServerID {
		t.Errorf("expected server %s, got %s", joinTestServerID, server.ID)
	}
	if len(serverRepo.added) != 0 {
		t.Errorf("expected no AddMember call for an existing member, got %v", serverRepo.added)
	}
	if len(hub.broadcastToServerCalls) != 0 {
		t.Errorf("expected no broadcast for an existing member, got %v", hub.broadcastToServerCalls)
	}
}

func TestJoinServer_NewMemberJoinsAndBroadcasts(t *testing.T) {
	svc, serverRepo, roleRepo, _, invites, hub := newTestServerServiceForJoin()

	server, err := svc.JoinServer(context.Background(), "newbie", &models.JoinServerRequest{InviteCode: "abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.ID != joinTestServerID {
		t.Errorf("expected server %s, got %s", joinTestServerID, server.ID)
	}
	if len(invites.validated) != 1 || invites.validated[0] != "abc123" {
		t.Errorf("expected invite code to be validated, got %v", invites.validated)
	}
	if len(serverRepo.added) != 1 || serverRepo.added[0] != joinTestServerID+"/newbie" {
		t.Errorf("expected AddMember(%s, newbie), got %v", joinTestServerID, serverRepo.added)
	}
	if len(roleRepo.assigned) != 1 || roleRepo.assigned[0] != "newbie/r-everyone/"+joinTestServerID {
		t.Errorf("expected default role assignment, got %v", roleRepo.assigned)
	}
	if len(hub.broadcastToServerCalls) != 1 || hub.broadcastToServerCalls[0] != joinTestServerID {
		t.Errorf("expected BroadcastToServer(%s), got %v", joinTestServerID, hub.broadcastToServerCalls)
	}
}

func TestJoinServer_InvalidInviteCode(t *testing.T) {
	svc, _, _, _, invites, _ := newTestServerServiceForJoin()
	invites.invite = nil

	_, err := svc.JoinServer(context.Background(), "newbie", &models.JoinServerRequest{InviteCode: "doesnotexist"})
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}
