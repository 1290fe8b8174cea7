package models

import "time"

type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderOther   Gender = "OTHER"
	GenderUnknown Gender = "UNKNOWN"
)

// Valid reports whether g is a known gender value
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberAlive    MemberStatus = "ALIVE"
	MemberDeceased MemberStatus = "DECEASED"
)

// Valid reports whether s is a known status value
func (s MemberStatus) Valid() bool {
	return s == MemberAlive || s == MemberDeceased
}

type RelationshipType string

const (
	RelationshipParent RelationshipType = "PARENT"
	RelationshipChild  RelationshipType = "CHILD"
	RelationshipSpouse RelationshipType = "SPOUSE"
)

// Valid reports whether r is a known relationship type
func (r RelationshipType) Valid() bool {
	switch r {
	case RelationshipParent, RelationshipChild, RelationshipSpouse:
		return true
	}
	return false
}

// Member is a person in the family tree
type Member struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Gender    Gender       `json:"gender"`
	Status    MemberStatus `json:"status"`
	BirthDate *time.Time   `json:"birth_date,omitempty"`
	DeathDate *time.Time   `json:"death_date,omitempty"`
	Bio       string       `json:"bio"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MemberWithRelations is a member together with its direct relatives
type MemberWithRelations struct {
	Member
	Parents  []Member `json:"parents"`
	Children []Member `json:"children"`
	Spouses  []Member `json:"spouses"`
}

// TreeNode is one person in a rendered family tree
type TreeNode struct {
	Member   Member      `json:"member"`
	Spouses  []Member    `json:"spouses,omitempty"`
	Parents  []*TreeNode `json:"parents,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}
