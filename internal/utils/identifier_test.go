package utils_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evalarena/evalarena-go-api/internal/utils"
)

func TestIsUUID(t *testing.T) {
	require.True(t, utils.IsUUID(uuid.NewString()))
	require.True(t, utils.IsUUID("123e4567-e89b-12d3-a456-426614174000"))

	require.False(t, utils.IsUUID(""))
	require.False(t, utils.IsUUID("set_1700000000000_a1b2c3"))
	require.False(t, utils.IsUUID("123e4567e89b12d3a456426614174000"))
	require.False(t, utils.IsUUID("not-a-uuid-at-all-but-36-chars-long!"))
}
