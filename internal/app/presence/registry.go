/*
Package presence tracks which accounts are online and the outbound channel of each.

The registry only references channels; the connection that owns a channel is the only
one that closes it. Snapshots are point-in-time copies: a message sent to an entry that
has since left is dropped by the channel, never retried.
*/
package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Channel is the outbound side of one session.
type Channel interface {
	// ID identifies the underlying connection.
	ID() string

	// Enqueue hands one encoded frame to the connection's writer.
	Enqueue(frame []byte) error
}

// Registry maps online account ids to their channels. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Channel)}
}

// Add binds accountID to ch, replacing any existing entry. Callers reject duplicate
// logins before calling Add; TryAdd does both atomically.
func (r *Registry) Add(accountID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[accountID] = ch
}

// TryAdd binds accountID to ch only if accountID is not online, reporting success.
func (r *Registry) TryAdd(accountID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[accountID]; ok {
		return false
	}
	r.sessions[accountID] = ch
	return true
}

// Remove deletes accountID unconditionally.
func (r *Registry) Remove(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, accountID)
}

// RemoveIf deletes accountID only while it is still bound to ch.
func (r *Registry) RemoveIf(accountID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[accountID]
	if !ok || current.ID() != ch.ID() {
		return false
	}
	delete(r.sessions, accountID)
	return true
}

// IsOnline reports whether accountID has a live session.
func (r *Registry) IsOnline(accountID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[accountID]
	return ok
}

// ChannelOf returns the channel bound to accountID.
func (r *Registry) ChannelOf(accountID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.sessions[accountID]
	return ch, ok
}

// OnlineAccountIDs returns a sorted snapshot of the online account ids.
func (r *Registry) OnlineAccountIDs() []string {
	r.mu.RLock()
	ids := lo.Keys(r.sessions)
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// AllChannels returns a snapshot of every bound channel.
func (r *Registry) AllChannels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.sessions)
}

// Count returns the number of online accounts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
