package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/models"
)

// ProfileService creates and reads user profiles. Profile counters change
// only as a side effect of TaskService operations.
type ProfileService struct {
	core
}

// NewProfileService constructs a ProfileService over store.
func NewProfileService(store RecordStore, deriver *derive.Deriver, opts ...Option) *ProfileService {
	return &ProfileService{core: newCore(store, deriver, opts)}
}

// InitializeUser creates owner's profile with both counters at zero,
// charging owner for the storage. A second call fails with ErrAlreadyInitialized.
func (s *ProfileService) InitializeUser(ctx context.Context, owner models.Identity) (ref ProfileRef, err error) {
	defer s.observe("initialize_user", owner, time.Now(), &err)

	addr, bump, err := s.deriver.ProfileAddress(owner)
	if err != nil {
		return ProfileRef{}, fmt.Errorf("derive profile address: %w", err)
	}
	profile := models.Profile{Owner: owner}

	err = s.store.Update(ctx, func(tx models.RecordWriter) error {
		rec := models.Record{
			Address: addr,
			Kind:    models.KindProfile,
			Owner:   owner,
			Data:    models.EncodeProfile(profile),
		}
		err := tx.Create(ctx, rec, owner)
		if errors.Is(err, models.ErrAddressInUse) {
			return fmt.Errorf("owner %s: %w", owner, ErrAlreadyInitialized)
		}
		return err
	})
	if err != nil {
		return ProfileRef{}, err
	}
	return ProfileRef{Address: addr, Bump: bump, Profile: profile}, nil
}

// GetProfile returns owner's profile or ErrProfileNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, owner models.Identity) (ref ProfileRef, err error) {
	defer s.observe("get_profile", owner, time.Now(), &err)

	err = s.store.View(ctx, func(tx models.RecordReader) error {
		var err error
		ref, err = s.loadProfile(ctx, tx, owner)
		return err
	})
	if err != nil {
		return ProfileRef{}, err
	}
	return ref, nil
}
