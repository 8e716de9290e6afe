package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
)

func TestFactConstructors(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	u, err := entity.Reconstitute("u-1", "Ana", "ana@x.com", "hash", entity.RoleUser, created, nil)
	require.NoError(t, err)

	c := Created(u)
	assert.Equal(t, "u-1", c.SubjectID())
	assert.Equal(t, TypeUserCreated, c.Type())
	assert.Equal(t, "User", c.Role)
	assert.Equal(t, created, c.OccurredAt())

	// before any update the fact falls back to creation time
	assert.Equal(t, created, Updated(u).OccurredAt())

	u2, err := entity.Reconstitute("u-1", "Ana Silva", "ana@x.com", "hash", entity.RoleUser, created, &updated)
	require.NoError(t, err)
	up := Updated(u2)
	assert.Equal(t, TypeUserUpdated, up.Type())
	assert.Equal(t, "Ana Silva", up.Name)
	assert.Equal(t, updated, up.OccurredAt())

	at := updated.Add(time.Minute)
	l := LoggedIn(u, false, at)
	assert.Equal(t, TypeUserLoggedIn, l.Type())
	assert.False(t, l.Success)
	assert.Equal(t, "u-1", l.SubjectID())
	assert.Equal(t, at, l.OccurredAt())
}
