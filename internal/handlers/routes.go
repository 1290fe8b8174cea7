package handlers

import "net/http"

// Handlers bundles every HTTP handler with the middleware that guards them
type Handlers struct {
	Middleware    *Middleware
	Auth          *AuthHandler
	Families      *FamilyHandler
	Members       *MemberHandler
	Posts         *PostHandler
	Invitations   *InvitationHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
}

// Register adds the API routes to mux
func (h *Handlers) Register(mux *http.ServeMux) {
	m := h.Middleware
	read := m.RequireAuth
	write := func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAuth(m.CSRFProtect(next))
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAdmin(m.CSRFProtect(next))
	}

	// Authentication
	mux.HandleFunc("POST /auth/register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /auth/login", m.RateLimit(h.Auth.Login))
	mux.HandleFunc("POST /auth/token", m.RateLimit(h.Auth.Token))
	mux.HandleFunc("POST /auth/logout", m.CSRFProtectSession(h.Auth.Logout))
	mux.HandleFunc("POST /auth/password", write(h.Auth.ChangePassword))
	mux.HandleFunc("GET /auth/{provider}/start", h.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Auth.OAuthCallback)
	mux.HandleFunc("GET /me", read(h.Auth.Me))

	// Families
	mux.HandleFunc("POST /families", write(h.Families.CreateFamily))
	mux.HandleFunc("GET /families", read(h.Families.ListFamilies))
	mux.HandleFunc("GET /families/{id}", read(h.Families.GetFamily))
	mux.HandleFunc("PUT /families/{id}", write(h.Families.UpdateFamily))
	mux.HandleFunc("DELETE /families/{id}", write(h.Families.DeleteFamily))
	mux.HandleFunc("GET /families/{id}/subfamilies", read(h.Families.ListSubFamilies))
	mux.HandleFunc("POST /families/{id}/recalculate", write(h.Families.Recalculate))
	mux.HandleFunc("POST /families/{id}/members", write(h.Families.AddMember))
	mux.HandleFunc("PUT /families/{id}/members/{memberId}", write(h.Families.UpdateMembership))
	mux.HandleFunc("DELETE /families/{id}/members/{memberId}", write(h.Families.RemoveMember))
	mux.HandleFunc("GET /families/{id}/posts", read(h.Posts.ListFamilyPosts))
	mux.HandleFunc("GET /families/{id}/export", read(h.Families.ExportRoster))
	mux.HandleFunc("POST /families/{id}/import", write(h.Families.ImportRoster))

	// Invitations
	mux.HandleFunc("POST /families/{id}/invitations", write(h.Invitations.Invite))
	mux.HandleFunc("GET /families/{id}/invitations", read(h.Invitations.ListInvitations))
	mux.HandleFunc("DELETE /families/{id}/invitations/{invitationId}", write(h.Invitations.Revoke))
	mux.HandleFunc("POST /invitations/{code}/accept", write(h.Invitations.Accept))

	// Members and the tree
	mux.HandleFunc("POST /members", write(h.Members.CreateMember))
	mux.HandleFunc("GET /members", read(h.Members.ListMembers))
	mux.HandleFunc("GET /members/{id}", read(h.Members.GetMember))
	mux.HandleFunc("PUT /members/{id}", write(h.Members.UpdateMember))
	mux.HandleFunc("DELETE /members/{id}", write(h.Members.DeleteMember))
	mux.HandleFunc("GET /members/{id}/tree", read(h.Members.GetTree))
	mux.HandleFunc("GET /members/{id}/posts", read(h.Posts.ListMemberPosts))
	mux.HandleFunc("POST /members/{id}/relationships", write(h.Members.AddRelationship))
	mux.HandleFunc("DELETE /members/{id}/relationships/{relatedId}", write(h.Members.RemoveRelationship))

	// Posts and comments
	mux.HandleFunc("POST /posts", write(h.Posts.CreatePost))
	mux.HandleFunc("GET /posts", read(h.Posts.ListFeed))
	mux.HandleFunc("GET /posts/{id}", read(h.Posts.GetPost))
	mux.HandleFunc("PUT /posts/{id}", write(h.Posts.UpdatePost))
	mux.HandleFunc("DELETE /posts/{id}", write(h.Posts.DeletePost))
	mux.HandleFunc("POST /posts/{id}/like", write(h.Posts.ToggleLike))
	mux.HandleFunc("POST /posts/{id}/comments", write(h.Posts.CreateComment))
	mux.HandleFunc("GET /posts/{id}/comments", read(h.Posts.ListComments))
	mux.HandleFunc("PUT /posts/{id}/comments/{commentId}", write(h.Posts.UpdateComment))
	mux.HandleFunc("DELETE /posts/{id}/comments/{commentId}", write(h.Posts.DeleteComment))
	mux.HandleFunc("POST /posts/{id}/comments/{commentId}/like", write(h.Posts.ToggleCommentLike))

	// Notifications
	mux.HandleFunc("GET /notifications", read(h.Notifications.List))
	mux.HandleFunc("GET /notifications/unread-count", read(h.Notifications.UnreadCount))
	mux.HandleFunc("POST /notifications/read-all", write(h.Notifications.MarkAllRead))
	mux.HandleFunc("POST /notifications/{id}/read", write(h.Notifications.MarkRead))
	mux.HandleFunc("DELETE /notifications/{id}", write(h.Notifications.Delete))

	// Site administration
	mux.HandleFunc("GET /admin/backup", m.RequireAdmin(h.Admin.ExportDatabase))
	mux.HandleFunc("POST /admin/restore", admin(h.Admin.ImportDatabase))
	mux.HandleFunc("GET /admin/stats", m.RequireAdmin(h.Admin.Stats))
	mux.HandleFunc("POST /admin/resolve", admin(h.Admin.ResolveAll))
	mux.HandleFunc("GET /admin/users", m.RequireAdmin(h.Admin.ListUsers))
	mux.HandleFunc("DELETE /admin/users/{id}", admin(h.Admin.DeleteUser))
}
