package models

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleHead   Role = "HEAD"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHead, RoleMember, RoleViewer:
		return true
	}
	return false
}

// IsAdmin reports whether the role may administer a family
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleHead
}

type MembershipType string

const (
	MembershipMain MembershipType = "MAIN"
	MembershipSub  MembershipType = "SUB"
)

// Family is a named group of members, optionally a sub-family of another family
type Family struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatorID      *int64    `json:"creator_id,omitempty"`
	HeadOfFamilyID *int64    `json:"head_of_family_id,omitempty"`
	ParentFamilyID *int64    `json:"parent_family_id,omitempty"`
	IsSubFamily    bool      `json:"is_sub_family"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FamilyMembership joins a member to a family.
// ManuallyEdited rows are never changed by automatic sub-family reconciliation.
type FamilyMembership struct {
	ID             int64          `json:"id"`
	MemberID       int64          `json:"member_id"`
	FamilyID       int64          `json:"family_id"`
	Role           Role           `json:"role"`
	Type           MembershipType `json:"type"`
	IsActive       bool           `json:"is_active"`
	AutoEnrolled   bool           `json:"auto_enrolled"`
	ManuallyEdited bool           `json:"manually_edited"`
	JoinDate       time.Time      `json:"join_date"`
}

// MembershipWithMember combines a membership with the member's details
type MembershipWithMember struct {
	FamilyMembership
	Member Member `json:"member"`
}

// FamilyWithMembers combines a family with its member information
type FamilyWithMembers struct {
	Family
	Members     []MembershipWithMember `json:"members"`
	SubFamilies []Family               `json:"sub_families"`
}
