package resume

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_IssueValidate_RoundTrip(t *testing.T) {
	svc, err := NewService("test-secret", 5*time.Minute)
	require.NoError(t, err)

	token, err := svc.IssueToken("client-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	clientID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "client-42", clientID)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	issuing, err := NewService("secret-one", 5*time.Minute)
	require.NoError(t, err)
	validating, err := NewService("secret-two", 5*time.Minute)
	require.NoError(t, err)

	token, err := issuing.IssueToken("client-42")
	require.NoError(t, err)

	_, err = validating.ValidateToken(token)
	assert.Error(t, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	svc, err := NewService("test-secret", -time.Second)
	require.NoError(t, err)

	token, err := svc.IssueToken("client-42")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestService_ValidateToken_Garbage(t *testing.T) {
	svc, err := NewService("test-secret", 5*time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestService_EmptySecretGetsRandom(t *testing.T) {
	first, err := NewService("", 5*time.Minute)
	require.NoError(t, err)
	second, err := NewService("", 5*time.Minute)
	require.NoError(t, err)

	// Секреты сгенерированы независимо: чужой токен не проходит
	token, err := first.IssueToken("client-42")
	require.NoError(t, err)

	_, err = second.ValidateToken(token)
	assert.Error(t, err)
}

func TestService_StashRestore(t *testing.T) {
	svc, err := NewService("test-secret", 5*time.Minute)
	require.NoError(t, err)

	svc.Stash("client-42", []string{"employees/updated", "system/alerts"}, 17)

	state, ok := svc.Restore("client-42")
	require.True(t, ok)
	assert.Equal(t, []string{"employees/updated", "system/alerts"}, state.Topics)
	assert.Equal(t, int64(17), state.LastVersion)

	// Повторный Restore ничего не находит
	_, ok = svc.Restore("client-42")
	assert.False(t, ok)
}

func TestService_Restore_Expired(t *testing.T) {
	svc, err := NewService("test-secret", -time.Second)
	require.NoError(t, err)

	svc.Stash("client-42", []string{"system/alerts"}, 3)

	_, ok := svc.Restore("client-42")
	assert.False(t, ok)
}

func TestService_Stash_EvictsExpired(t *testing.T) {
	svc, err := NewService("test-secret", time.Minute)
	require.NoError(t, err)

	svc.Stash("old", nil, 1)
	svc.mu.Lock()
	svc.stash["old"].ExpiresAt = time.Now().Add(-time.Second)
	svc.mu.Unlock()

	svc.Stash("fresh", nil, 2)

	svc.mu.Lock()
	_, oldKept := svc.stash["old"]
	_, freshKept := svc.stash["fresh"]
	svc.mu.Unlock()

	assert.False(t, oldKept)
	assert.True(t, freshKept)
}
