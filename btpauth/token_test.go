package btpauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	token, err := m.IssueToken("peer-a", "sess-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "peer-a", claims.Subject)
	require.Equal(t, "sess-1", claims.SessionID)
}

func TestValidateExpired(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), -time.Hour)

	token, err := m.IssueToken("peer-a", "sess-1")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestValidateWrongSecret(t *testing.T) {
	m1 := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	m2 := NewTokenManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)

	token, err := m1.IssueToken("peer-a", "sess-1")
	require.NoError(t, err)

	_, err = m2.ValidateToken(token)
	require.Error(t, err)
}
