package presence

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubChannel struct{ id string }

func (s stubChannel) ID() string { return s.id }
func (s stubChannel) Enqueue(_ []byte) error { return nil }

func TestRegistry_AddLookupRemove(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Add("bob", stubChannel{"c2"})
	r.Add("alice", stubChannel{"c1"})

	req.True(r.IsOnline("alice"))
	req.Equal(2, r.Count())
	req.Equal([]string{"alice", "bob"}, r.OnlineAccountIDs())
	req.Len(r.AllChannels(), 2)

	ch, ok := r.ChannelOf("alice")
	req.True(ok)
	req.Equal("c1", ch.ID())

	r.Remove("alice")
	req.False(r.IsOnline("alice"))
	_, ok = r.ChannelOf("alice")
	req.False(ok)
	req.Equal([]string{"bob"}, r.OnlineAccountIDs())
}

func TestRegistry_AddOverwritesWithoutCheck(t *testing.T) {
	r := NewRegistry()

	r.Add("alice", stubChannel{"c1"})
	r.Add("alice", stubChannel{"c2"})

	ch, _ := r.ChannelOf("alice")
	require.Equal(t, "c2", ch.ID())
	require.Equal(t, 1, r.Count())
}

func TestRegistry_TryAddSingleWinner(t *testing.T) {
	r := NewRegistry()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAdd("alice", stubChannel{fmt.Sprintf("c%d", i)}) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, 1, r.Count())
}

func TestRegistry_RemoveIfIgnoresStaleChannel(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Add("alice", stubChannel{"new"})

	req.False(r.RemoveIf("alice", stubChannel{"old"}))
	req.True(r.IsOnline("alice"))

	req.True(r.RemoveIf("alice", stubChannel{"new"}))
	req.False(r.IsOnline("alice"))
	req.False(r.RemoveIf("alice", stubChannel{"new"}))
}

func TestRegistry_SnapshotIsDetached(t *testing.T) {
	r := NewRegistry()
	r.Add("alice", stubChannel{"c1"})

	ids := r.OnlineAccountIDs()
	r.Add("bob", stubChannel{"c2"})

	require.Equal(t, []string{"alice"}, ids)
}
