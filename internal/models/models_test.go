package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestInvitationIsValid(t *testing.T) {
	usedAt := time.Now().Add(-time.Minute)

	tests := []struct {
		name       string
		invitation Invitation
		want       bool
	}{
		{
			name:       "fresh invitation",
			invitation: Invitation{ExpiresAt: time.Now().Add(time.Hour)},
			want:       true,
		},
		{
			name:       "expired invitation",
			invitation: Invitation{ExpiresAt: time.Now().Add(-time.Hour)},
			want:       false,
		},
		{
			name:       "used invitation",
			invitation: Invitation{ExpiresAt: time.Now().Add(time.Hour), UsedAt: &usedAt},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invitation.IsValid(); got != tt.want {
				t.Errorf("Invitation.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleIsAdmin(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleHead, true},
		{RoleMember, false},
		{RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsAdmin(); got != tt.want {
				t.Errorf("%s.IsAdmin() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestEnumValidation(t *testing.T) {
	if !VisibilitySubFamily.Valid() || Visibility("FRIENDS").Valid() {
		t.Error("Visibility.Valid() mismatch")
	}
	if !RelationshipSpouse.Valid() || RelationshipType("COUSIN").Valid() {
		t.Error("RelationshipType.Valid() mismatch")
	}
	if !Role("VIEWER").Valid() || Role("OWNER").Valid() {
		t.Error("Role.Valid() mismatch")
	}
	if !MemberDeceased.Valid() || MemberStatus("MISSING").Valid() {
		t.Error("MemberStatus.Valid() mismatch")
	}
	if !GenderUnknown.Valid() || Gender("").Valid() {
		t.Error("Gender.Valid() mismatch")
	}
}

func TestUserActorID(t *testing.T) {
	var nilUser *User
	if nilUser.ActorID() != 0 {
		t.Error("nil user should act as member 0")
	}

	memberID := int64(12)
	user := &User{ID: 1, MemberID: &memberID}
	if user.ActorID() != 12 {
		t.Errorf("ActorID() = %d, want 12", user.ActorID())
	}
}
