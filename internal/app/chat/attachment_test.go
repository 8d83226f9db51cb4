package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/errs"
)

func TestValidateFile(t *testing.T) {
	valid := protocol.Envelope{
		Kind:     protocol.KindFilePrivate,
		FileName: "notes.txt",
		FileSize: 5,
		FileData: []byte("hello"),
	}

	t.Run("should accept a consistent payload", func(t *testing.T) {
		require.Nil(t, ValidateFile(valid, 5))
	})

	t.Run("should accept an empty file", func(t *testing.T) {
		env := valid
		env.FileSize = 0
		env.FileData = nil
		require.Nil(t, ValidateFile(env, 5))
	})

	tests := []struct {
		name   string
		mutate func(*protocol.Envelope)
		max    int64
		code   int
	}{
		{"should reject a missing name", func(e *protocol.Envelope) { e.FileName = " " }, 5, errs.ErrInvalidParams},
		{"should reject a name with a path", func(e *protocol.Envelope) { e.FileName = "../etc/passwd" }, 5, errs.ErrInvalidParams},
		{"should reject a payload over the limit", func(*protocol.Envelope) {}, 4, errs.ErrFileSizeTooLarge},
		{"should reject a declared size over the limit", func(e *protocol.Envelope) { e.FileSize = 1 << 40 }, 5, errs.ErrFileSizeTooLarge},
		{"should reject a short payload", func(e *protocol.Envelope) { e.FileData = []byte("hell") }, 5, errs.ErrFileSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := valid
			tt.mutate(&env)

			cErr := ValidateFile(env, tt.max)
			require.NotNil(t, cErr)
			require.Equal(t, tt.code, cErr.Code)
		})
	}
}

func TestMaxFrameBytesFor(t *testing.T) {
	require.Equal(t, int64(4+frameOverhead), MaxFrameBytesFor(3))
	require.Equal(t, int64(8+frameOverhead), MaxFrameBytesFor(4))
	require.Equal(t, int64(frameOverhead), MaxFrameBytesFor(0))
}
