package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/taxres/internal/csed"
)

func TestNullDate(t *testing.T) {
	at := time.Date(2031, 1, 10, 0, 0, 0, 0, time.UTC)

	got := nullDate(csed.Determined(at))
	assert.True(t, got.Valid)
	assert.Equal(t, at, got.Time)

	assert.False(t, nullDate(csed.Open()).Valid)
	assert.False(t, nullDate(csed.Undefined()).Valid)
}
