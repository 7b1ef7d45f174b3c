package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	// Repositories wrap scan errors before mapping them, so the check
	// must see through %w chains.
	assert.True(t, IsNotFound(fmt.Errorf("get instance by id: %w", pgx.ErrNoRows)))

	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("connection refused")))
}
