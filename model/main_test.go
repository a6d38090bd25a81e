package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, SetupTestDB(t.Name()))
	t.Cleanup(func() {
		_ = CloseDB()
	})
}

func createTestUser(t *testing.T, username string, inviterId int) *User {
	t.Helper()
	user := &User{
		Username:    username,
		Password:    "password123",
		DisplayName: username,
		Status:      1,
		Role:        1,
	}
	require.NoError(t, user.Insert(inviterId))
	return user
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func reloadUser(t *testing.T, id int) *User {
	t.Helper()
	user, err := GetUserById(id, false)
	require.NoError(t, err)
	return user
}
