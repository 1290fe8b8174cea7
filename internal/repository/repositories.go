package repository

import "familytree/internal/database"

// Repositories bundles every repository bound to the same connection or transaction
type Repositories struct {
	Users         *UserRepository
	Members       *MemberRepository
	Families      *FamilyRepository
	Memberships   *MembershipRepository
	Posts         *PostRepository
	Comments      *CommentRepository
	Notifications *NotificationRepository
	Invitations   *InvitationRepository
}

// NewRepositories binds all repositories to db
func NewRepositories(db database.DBTX) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Members:       NewMemberRepository(db),
		Families:      NewFamilyRepository(db),
		Memberships:   NewMembershipRepository(db),
		Posts:         NewPostRepository(db),
		Comments:      NewCommentRepository(db),
		Notifications: NewNotificationRepository(db),
		Invitations:   NewInvitationRepository(db),
	}
}
