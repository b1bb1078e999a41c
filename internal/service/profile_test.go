package service_test

import (
	"context"
	"testing"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ref, err := f.profiles.InitializeUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.Profile{Owner: alice}, ref.Profile)

	addr, bump, err := f.deriver.ProfileAddress(alice)
	require.NoError(t, err)
	assert.Equal(t, addr, ref.Address)
	assert.Equal(t, bump, ref.Bump)

	got, err := f.profiles.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Equal(t, observation{"get_profile", "ok"}, f.metrics.last())
}

func TestInitializeUser_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.profiles.InitializeUser(ctx, alice)
	require.NoError(t, err)
	_, err = f.profiles.InitializeUser(ctx, alice)
	assert.ErrorIs(t, err, service.ErrAlreadyInitialized)
	assert.Equal(t, observation{"initialize_user", "already_initialized"}, f.metrics.last())
}

func TestInitializeUser_SeparateOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.profiles.InitializeUser(ctx, alice)
	require.NoError(t, err)
	b, err := f.profiles.InitializeUser(ctx, bob)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestGetProfile_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.profiles.GetProfile(context.Background(), alice)
	assert.ErrorIs(t, err, service.ErrProfileNotFound)
}

func TestGetProfile_ForeignOwner(t *testing.T) {
	f := newFixture(t)
	// a record at alice's profile address claiming bob as owner
	f.putProfile(t, alice, models.Profile{Owner: bob})

	_, err := f.profiles.GetProfile(context.Background(), alice)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestGetProfile_Corrupt(t *testing.T) {
	f := newFixture(t)
	addr, _, err := f.deriver.ProfileAddress(alice)
	require.NoError(t, err)
	f.put(t, models.Record{Address: addr, Kind: models.KindProfile, Owner: alice, Data: []byte("garbage")})

	_, err = f.profiles.GetProfile(context.Background(), alice)
	assert.ErrorIs(t, err, models.ErrCorruptRecord)
	assert.Equal(t, 1, f.logs.FilterMessage("profile may be corrupted").Len())
}
