package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRepo(t *testing.T) *MemoryUserRepository {
	t.Helper()
	repo, err := NewMemoryUserRepository([]UserSeed{
		{Username: "admin", Password: "admin123", Roles: []string{"admin"}},
		{Username: "alice", Password: "alice123", Roles: []string{"user"}, Categories: []string{"eng"}},
		{Username: "  ", Password: "ignored"},
	})
	require.NoError(t, err)
	return repo
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := seedRepo(t)

	user, err := repo.Authenticate("alice", "alice123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []string{"eng"}, user.AccessCategories)
}

func TestAuthenticateFailureIsUniform(t *testing.T) {
	repo := seedRepo(t)

	_, badPassword := repo.Authenticate("alice", "wrong")
	_, unknownUser := repo.Authenticate("mallory", "whatever")

	// 密码错误与用户不存在不可区分
	assert.ErrorIs(t, badPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
}

func TestFindByUsername(t *testing.T) {
	repo := seedRepo(t)

	user, err := repo.FindByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, user.Roles)
	// 密码只存哈希
	assert.NotContains(t, string(user.PasswordHash), "admin123")

	_, err = repo.FindByUsername("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBlankSeedSkipped(t *testing.T) {
	repo := seedRepo(t)
	_, err := repo.FindByUsername("")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
