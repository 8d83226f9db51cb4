package randx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroupID_IsUniqueAndValid(t *testing.T) {
	req := require.New(t)

	seen := make(map[string]struct{})
	for range 100 {
		id := GroupID()
		req.True(IsValidGroupID(id))
		_, dup := seen[id]
		req.False(dup, "duplicate group id %s", id)
		seen[id] = struct{}{}
	}
}

func TestSessionID_HasULIDShape(t *testing.T) {
	req := require.New(t)

	id := SessionID(time.Now())
	req.Len(id, 26)
	req.NotEqual(id, SessionID(time.Now()))
}

func TestIsValidGroupID_RejectsGarbage(t *testing.T) {
	require.False(t, IsValidGroupID("not-a-group"))
	require.False(t, IsValidGroupID(""))
}
