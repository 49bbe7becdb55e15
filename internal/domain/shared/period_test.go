package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDay(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	p := Day(at)

	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), p.To)
	assert.False(t, p.IsOpen())
	assert.True(t, Period{}.IsOpen())
}
