package chat

import (
	"path/filepath"
	"strings"

	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/errs"
)

// ValidateFile checks a FILE_PRIVATE or FILE_GROUP payload: a usable file name, a
// declared size equal to the payload length, and a payload within maxBytes.
func ValidateFile(env protocol.Envelope, maxBytes int64) *errs.CustomError {
	name := strings.TrimSpace(env.FileName)
	if name == "" || filepath.Base(name) != name {
		return errs.NewError(errs.ErrInvalidParams, "file name")
	}

	size := int64(len(env.FileData))
	if size > maxBytes || env.FileSize > maxBytes {
		return errs.NewError(errs.ErrFileSizeTooLarge, maxBytes)
	}

	if env.FileSize != size {
		return errs.NewError(errs.ErrFileSizeMismatch, name)
	}

	return nil
}
