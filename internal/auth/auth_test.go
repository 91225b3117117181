package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := m.Issue("alice")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Login)
	require.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, err := NewManager("secret", time.Minute)
	require.NoError(t, err)

	token, _, err := m.Issue("alice")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a, err := NewManager("one", time.Hour)
	require.NoError(t, err)
	b, err := NewManager("two", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue("alice")
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRandomSecretWhenEmpty(t *testing.T) {
	m, err := NewManager("", time.Hour)
	require.NoError(t, err)
	require.Len(t, m.secret, 64)

	_, err = NewManager("x", 0)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.NoError(t, CheckPassword(hash, "hunter2"))
	require.ErrorIs(t, CheckPassword(hash, "hunter3"), ErrInvalidCredentials)
}
