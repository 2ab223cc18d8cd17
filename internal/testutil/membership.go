package testutil

import (
	"context"
	"sync"

	"docshare/internal/hier"
)

// FakeMembership is an in-memory hier.MembershipOracle.
type FakeMembership struct {
	mu       sync.Mutex
	owners   map[string]string          // project -> owner
	members  map[string]map[string]bool // project -> user set
	failWith error
}

var _ hier.MembershipOracle = (*FakeMembership)(nil)

func NewFakeMembership() *FakeMembership {
	return &FakeMembership{
		owners:  make(map[string]string),
		members: make(map[string]map[string]bool),
	}
}

// AddProject registers projectID owned by ownerID.
func (f *FakeMembership) AddProject(projectID, ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[projectID] = ownerID
	if f.members[projectID] == nil {
		f.members[projectID] = make(map[string]bool)
	}
}

// AddMember adds userID to projectID as a plain member.
func (f *FakeMembership) AddMember(projectID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[projectID] == nil {
		f.members[projectID] = make(map[string]bool)
	}
	f.members[projectID][userID] = true
}

// RemoveMember drops userID from projectID.
func (f *FakeMembership) RemoveMember(projectID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[projectID], userID)
}

// FailWith makes every subsequent query return err. Pass nil to recover.
func (f *FakeMembership) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *FakeMembership) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.owners[projectID]
	return ok, nil
}

func (f *FakeMembership) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.members[projectID][userID], nil
}

func (f *FakeMembership) IsOwner(ctx context.Context, projectID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	owner, ok := f.owners[projectID]
	return ok && owner == userID, nil
}
