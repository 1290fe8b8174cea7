package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"familytree/internal/access"
	"familytree/internal/database"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/security"
	"familytree/migrations"
)

// testEnv wires every service over a fresh SQLite database
type testEnv struct {
	db            *database.DB
	repos         *repository.Repositories
	resolver      *SubFamilyResolver
	notifications *NotificationService
	families      *FamilyService
	members       *MemberService
	posts         *PostService
	comments      *CommentService
	invitations   *InvitationService
	auth          *AuthService
	backup        *BackupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(migrations.FS)
	require.NoError(t, err)

	repos := repository.NewRepositories(db)
	tx := NewTransactor(db)
	policy := access.NewPolicy(repos.Memberships, repos.Members)
	resolver := NewSubFamilyResolver(repos, tx, StaleKeep, nil)
	notifications := NewNotificationService(repos.Notifications, repos.Users, nil, nil)
	tokens := security.NewTokenIssuer("test-secret", time.Hour)

	return &testEnv{
		db:            db,
		repos:         repos,
		resolver:      resolver,
		notifications: notifications,
		families:      NewFamilyService(repos, tx, policy, resolver, notifications, nil),
		members:       NewMemberService(repos, tx, policy, resolver, notifications, nil),
		posts:         NewPostService(repos, tx, policy, notifications, nil),
		comments:      NewCommentService(repos, tx, policy, notifications, nil),
		invitations:   NewInvitationService(repos, tx, policy, nil, notifications, nil),
		auth:          NewAuthService(repos, tx, tokens, nil, time.Hour, nil),
		backup:        NewBackupService(db, tx, policy, nil),
	}
}

// member inserts a bare member and returns its id
func (e *testEnv) member(t *testing.T, name string) int64 {
	t.Helper()
	m, err := e.repos.Members.CreateMember(&models.Member{Name: name, Gender: models.GenderUnknown, Status: models.MemberAlive})
	require.NoError(t, err)
	return m.ID
}

// family creates a main family administered by adminID
func (e *testEnv) family(t *testing.T, adminID int64, name string) *models.Family {
	t.Helper()
	f, err := e.families.CreateFamily(adminID, FamilyInput{Name: name})
	require.NoError(t, err)
	return f
}

// join adds memberID to familyID as a plain member
func (e *testEnv) join(t *testing.T, adminID, familyID, memberID int64) {
	t.Helper()
	_, err := e.families.AddMember(adminID, familyID, MembershipInput{MemberID: memberID})
	require.NoError(t, err)
}

func (e *testEnv) notificationsFor(t *testing.T, memberID int64) []models.Notification {
	t.Helper()
	list, err := e.notifications.List(memberID, false, Page{})
	require.NoError(t, err)
	return list
}
