package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users map[string]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*User)}
}

func (f *fakeRepo) Create(_ context.Context, email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.New(), Email: email, PasswordHash: passwordHash}
	f.users[email] = u
	return u, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	return f.users[email], nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.users[email]
	return ok, nil
}

func TestServiceNormalizesEmail(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	u, err := svc.Create(ctx, "  Test@Example.COM ", "hash")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", u.Email)

	got, err := svc.GetByEmail(ctx, "TEST@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	exists, err := svc.ExistsByEmail(ctx, "test@example.com ")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestServiceGetByEmailMissing(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, err := svc.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}
