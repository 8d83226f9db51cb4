/*
Package group stores the named chat groups and their member sets.

Groups are created with a fresh UUID and are never deleted; names are not unique. One
default group is created with the store and every user joins it on login. All methods
return copies, so callers never share member slices with the store.
*/
package group

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/randx"
)

// Group is a snapshot of one group.
type Group struct {
	ID      string
	Name    string
	Members []string
}

// HasMember reports whether accountID belongs to the group.
func (g Group) HasMember(accountID string) bool {
	return lo.Contains(g.Members, accountID)
}

// Info converts the snapshot to its wire form.
func (g Group) Info() protocol.GroupInfo {
	return protocol.GroupInfo{ID: g.ID, Name: g.Name, Members: g.Members}
}

// JoinResult tells a new membership from a repeated one.
type JoinResult int

const (
	Joined JoinResult = iota
	AlreadyMember
)

// group is the store-owned record. members keeps join order.
type group struct {
	id      string
	name    string
	members []string
}

func (g *group) snapshot() Group {
	return Group{
		ID:      g.id,
		Name:    g.name,
		Members: append([]string{}, g.members...),
	}
}

// Store holds every group. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// byID indexes groups; order keeps creation order for listing and name lookup.
	byID  map[string]*group
	order []*group

	defaultID string

	logger zerolog.Logger
}

// NewStore creates a store seeded with the default group named defaultName.
func NewStore(defaultName string) *Store {
	s := &Store{
		byID:   make(map[string]*group),
		logger: logx.Component("group_store"),
	}

	s.defaultID = s.Create(defaultName).ID
	return s
}

// Create adds a group with a generated id. It never fails.
func (s *Store) Create(name string) Group {
	g := &group{id: randx.GroupID(), name: name}

	s.mu.Lock()
	s.byID[g.id] = g
	s.order = append(s.order, g)
	snap := g.snapshot()
	s.mu.Unlock()

	s.logger.Info().Str("group_id", g.id).Str("group_name", name).Msg("Group created.")
	return snap
}

// ByID returns the group with id.
func (s *Store) ByID(id string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.byID[id]
	if !ok {
		return Group{}, false
	}
	return g.snapshot(), true
}

// ByName returns the oldest group called name. Names are not unique, so a newer
// group with the same name is unreachable through this lookup.
func (s *Store) ByName(name string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := lo.Find(s.order, func(g *group) bool { return g.name == name })
	if !ok {
		return Group{}, false
	}
	return g.snapshot(), true
}

// Search returns every group whose name contains keyword (case-sensitive), oldest first.
func (s *Store) Search(keyword string) []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.FilterMap(s.order, func(g *group, _ int) (Group, bool) {
		if !strings.Contains(g.name, keyword) {
			return Group{}, false
		}
		return g.snapshot(), true
	})
}

// Join adds accountID to the group. ok is false when the group does not exist;
// joining twice leaves the member set unchanged and reports AlreadyMember.
func (s *Store) Join(groupID, accountID string) (result JoinResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.byID[groupID]
	if !ok {
		return Joined, false
	}

	if lo.Contains(g.members, accountID) {
		return AlreadyMember, true
	}
	g.members = append(g.members, accountID)
	return Joined, true
}

// Leave removes accountID from the group, reporting whether it was a member.
func (s *Store) Leave(groupID, accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.byID[groupID]
	if !ok || !lo.Contains(g.members, accountID) {
		return false
	}
	g.members = lo.Without(g.members, accountID)
	return true
}

// RemoveMemberEverywhere drops accountID from every group.
func (s *Store) RemoveMemberEverywhere(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.order {
		g.members = lo.Without(g.members, accountID)
	}
}

// All returns every group, oldest first.
func (s *Store) All() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.order, func(g *group, _ int) Group { return g.snapshot() })
}

// Infos returns All in wire form.
func (s *Store) Infos() []protocol.GroupInfo {
	return lo.Map(s.All(), func(g Group, _ int) protocol.GroupInfo { return g.Info() })
}

// Default returns the bootstrap group.
func (s *Store) Default() Group {
	g, _ := s.ByID(s.defaultID)
	return g
}

// IsDefault reports whether id names the bootstrap group.
func (s *Store) IsDefault(id string) bool {
	return id == s.defaultID
}
