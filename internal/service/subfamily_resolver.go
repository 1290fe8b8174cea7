package service

import (
	"fmt"

	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/metrics"
	"familytree/internal/models"
	"familytree/internal/repository"
)

// StalePolicy decides what happens to auto-enrolled memberships whose member
// has left the head's lineage
type StalePolicy string

const (
	// StaleKeep leaves stale auto-enrolled memberships active
	StaleKeep StalePolicy = "keep"
	// StaleDeactivate deactivates stale auto-enrolled memberships that were never edited by hand
	StaleDeactivate StalePolicy = "deactivate"
)

// ParseStalePolicy parses a configured policy name; empty means keep
func ParseStalePolicy(value string) (StalePolicy, error) {
	switch StalePolicy(value) {
	case "", StaleKeep:
		return StaleKeep, nil
	case StaleDeactivate:
		return StaleDeactivate, nil
	default:
		return "", fmt.Errorf("unknown sub-family stale policy %q", value)
	}
}

// SubFamilyStore is the data the resolver reads and writes
type SubFamilyStore interface {
	GetFamilyByID(familyID int64) (*models.Family, error)
	GetSpouseIDs(memberID int64) ([]int64, error)
	GetChildIDs(memberID int64) ([]int64, error)
	GetAncestorIDs(memberID int64) ([]int64, error)
	GetSubFamiliesByHeads(headIDs []int64) ([]models.Family, error)
	GetAllSubFamilies() ([]models.Family, error)
	GetMembership(memberID, familyID int64) (*models.FamilyMembership, error)
	CreateMembership(m *models.FamilyMembership) (*models.FamilyMembership, error)
	SetAutoState(membershipID int64, isActive, autoEnrolled bool) error
	ListAutoEnrolled(familyID int64) ([]models.FamilyMembership, error)
}

// ResolveResult reports what one resolution of a sub-family changed
type ResolveResult struct {
	FamilyID      int64   `json:"family_id"`
	HeadID        int64   `json:"head_id"`
	MemberIDs     []int64 `json:"member_ids"`
	Created       int     `json:"created"`
	Reactivated   int     `json:"reactivated"`
	Unchanged     int     `json:"unchanged"`
	ManualSkipped int     `json:"manual_skipped"`
	Deactivated   int     `json:"deactivated"`
}

// Writes returns the number of rows the resolution wrote
func (r *ResolveResult) Writes() int {
	return r.Created + r.Reactivated + r.Deactivated
}

// SubFamilyResolver keeps a sub-family's roster in line with the descendants of its head
type SubFamilyResolver struct {
	store  SubFamilyStore
	inTx   func(fn func(store SubFamilyStore) error) error
	policy StalePolicy
	logger *logger.Logger
}

// NewSubFamilyResolver creates a resolver that reconciles each family in one transaction
func NewSubFamilyResolver(db *repository.Repositories, tx Transactor, policy StalePolicy, log *logger.Logger) *SubFamilyResolver {
	inTx := func(fn func(store SubFamilyStore) error) error {
		return tx.InTx(func(repos *repository.Repositories) error {
			return fn(repositoryStore{repos})
		})
	}
	return newSubFamilyResolver(repositoryStore{db}, inTx, policy, log)
}

func newSubFamilyResolver(store SubFamilyStore, inTx func(fn func(store SubFamilyStore) error) error, policy StalePolicy, log *logger.Logger) *SubFamilyResolver {
	if policy == "" {
		policy = StaleKeep
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SubFamilyResolver{store: store, inTx: inTx, policy: policy, logger: log}
}

// Policy returns the stale-membership policy in effect
func (r *SubFamilyResolver) Policy() StalePolicy {
	return r.policy
}

// Resolve reconciles the memberships of one sub-family
func (r *SubFamilyResolver) Resolve(familyID int64) (*ResolveResult, error) {
	var result *ResolveResult
	err := r.inTx(func(store SubFamilyStore) error {
		res, err := r.reconcile(store, familyID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	metrics.RecordResolution(err == nil)
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipChanges("created", result.Created)
	metrics.RecordMembershipChanges("reactivated", result.Reactivated)
	metrics.RecordMembershipChanges("deactivated", result.Deactivated)
	r.logger.Info("sub-family resolved",
		"family_id", familyID,
		"members", len(result.MemberIDs),
		"created", result.Created,
		"reactivated", result.Reactivated,
		"unchanged", result.Unchanged,
		"manual_skipped", result.ManualSkipped,
		"deactivated", result.Deactivated,
	)
	return result, nil
}

// ResolveForMembers recalculates every sub-family headed by one of the given
// members or one of their ancestors
func (r *SubFamilyResolver) ResolveForMembers(memberIDs ...int64) ([]*ResolveResult, error) {
	heads := make(map[int64]bool)
	var headIDs []int64
	for _, id := range memberIDs {
		ancestors, err := r.store.GetAncestorIDs(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestors: %w", err)
		}
		for _, candidate := range append([]int64{id}, ancestors...) {
			if !heads[candidate] {
				heads[candidate] = true
				headIDs = append(headIDs, candidate)
			}
		}
	}

	families, err := r.store.GetSubFamiliesByHeads(headIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sub-families: %w", err)
	}
	return r.resolveEach(families)
}

// ResolveAll recalculates every sub-family that has a head
func (r *SubFamilyResolver) ResolveAll() ([]*ResolveResult, error) {
	families, err := r.store.GetAllSubFamilies()
	if err != nil {
		return nil, fmt.Errorf("failed to load sub-families: %w", err)
	}
	return r.resolveEach(families)
}

func (r *SubFamilyResolver) resolveEach(families []models.Family) ([]*ResolveResult, error) {
	results := make([]*ResolveResult, 0, len(families))
	for _, family := range families {
		result, err := r.Resolve(family.ID)
		if err != nil {
			return results, fmt.Errorf("failed to resolve family %d: %w", family.ID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *SubFamilyResolver) reconcile(store SubFamilyStore, familyID int64) (*ResolveResult, error) {
	family, err := store.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, apperr.BadRequest("family %d does not exist", familyID)
	}
	if !family.IsSubFamily {
		return nil, apperr.BadRequest("family %d is not a sub-family", familyID)
	}
	if family.HeadOfFamilyID == nil {
		return nil, apperr.BadRequest("sub-family %d has no head", familyID)
	}
	headID := *family.HeadOfFamilyID

	memberIDs, err := lineage(store, headID)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{FamilyID: familyID, HeadID: headID, MemberIDs: memberIDs}
	inLineage := make(map[int64]bool, len(memberIDs))

	for _, memberID := range memberIDs {
		inLineage[memberID] = true

		membership, err := store.GetMembership(memberID, familyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get membership: %w", err)
		}

		switch {
		case membership == nil:
			role := models.RoleMember
			if memberID == headID {
				role = models.RoleHead
			}
			_, err := store.CreateMembership(&models.FamilyMembership{
				MemberID:     memberID,
				FamilyID:     familyID,
				Role:         role,
				Type:         models.MembershipSub,
				IsActive:     true,
				AutoEnrolled: true,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to enroll member %d: %w", memberID, err)
			}
			result.Created++
		case membership.ManuallyEdited:
			result.ManualSkipped++
		case membership.IsActive && membership.AutoEnrolled:
			result.Unchanged++
		default:
			if err := store.SetAutoState(membership.ID, true, true); err != nil {
				return nil, fmt.Errorf("failed to reactivate member %d: %w", memberID, err)
			}
			result.Reactivated++
		}
	}

	if r.policy != StaleDeactivate {
		return result, nil
	}

	enrolled, err := store.ListAutoEnrolled(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-enrolled members: %w", err)
	}
	for _, membership := range enrolled {
		if inLineage[membership.MemberID] || membership.ManuallyEdited {
			continue
		}
		if err := store.SetAutoState(membership.ID, false, true); err != nil {
			return nil, fmt.Errorf("failed to deactivate member %d: %w", membership.MemberID, err)
		}
		result.Deactivated++
	}

	return result, nil
}

// lineage returns the head, the head's spouses, and every descendant of the
// head together with each descendant's spouses. Members already seen are skipped,
// so cycles in the parent graph terminate.
func lineage(store SubFamilyStore, headID int64) ([]int64, error) {
	seen := make(map[int64]bool)
	var ordered []int64
	add := func(id int64) bool {
		if seen[id] {
			return false
		}
		seen[id] = true
		ordered = append(ordered, id)
		return true
	}

	add(headID)
	spouses, err := store.GetSpouseIDs(headID)
	if err != nil {
		return nil, fmt.Errorf("failed to get spouses of member %d: %w", headID, err)
	}
	for _, id := range spouses {
		add(id)
	}

	expanded := map[int64]bool{headID: true}
	queue := []int64{headID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := store.GetChildIDs(current)
		if err != nil {
			return nil, fmt.Errorf("failed to get children of member %d: %w", current, err)
		}
		for _, childID := range children {
			add(childID)
			if expanded[childID] {
				continue
			}
			expanded[childID] = true
			queue = append(queue, childID)

			childSpouses, err := store.GetSpouseIDs(childID)
			if err != nil {
				return nil, fmt.Errorf("failed to get spouses of member %d: %w", childID, err)
			}
			for _, id := range childSpouses {
				add(id)
			}
		}
	}

	return ordered, nil
}

// repositoryStore adapts repositories to SubFamilyStore
type repositoryStore struct {
	repos *repository.Repositories
}

func (s repositoryStore) GetFamilyByID(familyID int64) (*models.Family, error) {
	return s.repos.Families.GetFamilyByID(familyID)
}

func (s repositoryStore) GetSpouseIDs(memberID int64) ([]int64, error) {
	return s.repos.Members.GetSpouseIDs(memberID)
}

func (s repositoryStore) GetChildIDs(memberID int64) ([]int64, error) {
	return s.repos.Members.GetChildIDs(memberID)
}

func (s repositoryStore) GetAncestorIDs(memberID int64) ([]int64, error) {
	return s.repos.Members.GetAncestorIDs(memberID)
}

func (s repositoryStore) GetSubFamiliesByHeads(headIDs []int64) ([]models.Family, error) {
	return s.repos.Families.GetSubFamiliesByHeads(headIDs)
}

func (s repositoryStore) GetAllSubFamilies() ([]models.Family, error) {
	return s.repos.Families.GetAllSubFamilies()
}

func (s repositoryStore) GetMembership(memberID, familyID int64) (*models.FamilyMembership, error) {
	return s.repos.Memberships.GetMembership(memberID, familyID)
}

func (s repositoryStore) CreateMembership(m *models.FamilyMembership) (*models.FamilyMembership, error) {
	return s.repos.Memberships.CreateMembership(m)
}

func (s repositoryStore) SetAutoState(membershipID int64, isActive, autoEnrolled bool) error {
	return s.repos.Memberships.SetAutoState(membershipID, isActive, autoEnrolled)
}

func (s repositoryStore) ListAutoEnrolled(familyID int64) ([]models.FamilyMembership, error) {
	return s.repos.Memberships.ListAutoEnrolled(familyID)
}
