// ABOUTME: Startup user seeding from a TOML file
// ABOUTME: Creates listed users if absent so a fresh install has a usable directory

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/patterhq/patter/internal/store"
)

type seedFile struct {
	Users []seedUser `toml:"users"`
}

type seedUser struct {
	Name         string `toml:"name"`
	MobileNumber string `toml:"mobile_number"`
}

// SeedUsers creates the users listed in the TOML file at path. Users whose
// mobile number is already registered are skipped, so seeding is safe to
// run on every startup.
func SeedUsers(ctx context.Context, st store.Store, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")

	var file seedFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	created := 0
	for i, su := range file.Users {
		if !validMobileNumber(su.MobileNumber) {
			return fmt.Errorf("seed user %d: invalid mobile number %q", i, su.MobileNumber)
		}

		_, err := st.GetUserByMobileNumber(ctx, su.MobileNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("looking up seed user %q: %w", su.MobileNumber, err)
		}

		user := &store.User{
			ID:           uuid.New().String(),
			Name:         su.Name,
			MobileNumber: su.MobileNumber,
			CreatedAt:    time.Now().UTC(),
		}
		if err := st.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("creating seed user %q: %w", su.MobileNumber, err)
		}
		created++
		logger.Info("seed user created", "user_id", user.ID, "name", user.Name, "mobile_number", user.MobileNumber)
	}

	logger.Info("seeding complete", "total", len(file.Users), "created", created)
	return nil
}
