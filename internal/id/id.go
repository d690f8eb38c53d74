package id

import (
	"strings"

	"github.com/google/uuid"
)

// Hex returns a fresh random identifier as 32 lowercase hex characters.
func Hex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PublicID names a remote asset.
func PublicID() string {
	return "edit_" + Hex()
}

// TempName names a local scratch file for an upload.
func TempName() string {
	return "temp_" + Hex() + ".jpg"
}
