//go:build headless

package frontend

import (
	"context"
	"errors"

	"github.com/user-none/retrohost/storage"
)

// RunWindowed is unavailable in headless builds.
func RunWindowed(ctx context.Context, s *Session, cfg *storage.Config) error {
	return errors.New("built without window support; use -headless")
}
