package auth

import (
	"testing"
	"time"

	"gestistock/internal/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, exp, err := m.Generate("u-7", "Awa", models.RoleManager)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "u-7", Name: "Awa", Role: models.RoleManager}, claims.Actor())
}

func TestGenerateRejectsUnknownRole(t *testing.T) {
	_, _, err := NewManager("secret", time.Hour).Generate("u-1", "x", "cashier")
	assert.Error(t, err)
}

func TestParseRejectsBadTokens(t *testing.T) {
	m := NewManager("secret", time.Hour)
	valid, _, err := m.Generate("u-1", "Awa", models.RoleSeller)
	require.NoError(t, err)

	expired := NewManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Generate("u-1", "Awa", models.RoleSeller)
	require.NoError(t, err)

	foreign, _, err := NewManager("other", time.Hour).Generate("u-1", "Awa", models.RoleAdmin)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1", Role: models.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"expired":      old,
		"wrong secret": foreign,
		"unsigned":     none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
