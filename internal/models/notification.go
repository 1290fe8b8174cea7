package models

import "time"

type NotificationType string

const (
	NotificationPostLiked        NotificationType = "POST_LIKED"
	NotificationPostCommented    NotificationType = "POST_COMMENTED"
	NotificationCommentReplied   NotificationType = "COMMENT_REPLIED"
	NotificationCommentLiked     NotificationType = "COMMENT_LIKED"
	NotificationFamilyJoined     NotificationType = "FAMILY_JOINED"
	NotificationRelationshipAdd  NotificationType = "RELATIONSHIP_ADDED"
	NotificationMembershipChange NotificationType = "MEMBERSHIP_CHANGED"
)

type Notification struct {
	ID            int64            `json:"id"`
	RecipientID   int64            `json:"recipient_id"`
	ActorID       *int64           `json:"actor_id,omitempty"`
	Type          NotificationType `json:"type"`
	Message       string           `json:"message"`
	ReferenceType string           `json:"reference_type,omitempty"`
	ReferenceID   *int64           `json:"reference_id,omitempty"`
	IsRead        bool             `json:"is_read"`
	CreatedAt     time.Time        `json:"created_at"`
}
