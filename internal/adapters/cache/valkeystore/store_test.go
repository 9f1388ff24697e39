package valkeystore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiry(t *testing.T) {
	assert.Equal(t, time.Second, expiry(0))
	assert.Equal(t, time.Second, expiry(200*time.Millisecond))
	assert.Equal(t, 30*time.Second, expiry(30*time.Second))
	assert.Equal(t, 31*time.Second, expiry(30*time.Second+time.Millisecond))
}
