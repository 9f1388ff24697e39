package valkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyComposition(t *testing.T) {
	assert.Equal(t, "crm:", normalizePrefix("crm"))
	assert.Equal(t, "crm:", normalizePrefix("crm:"))
	assert.Equal(t, "", normalizePrefix("  "))

	assert.Equal(t, "crm:evalcache:r1", joinKey("crm:", "evalcache", "r1"))
	assert.Equal(t, "crm", joinKey("crm:"))
	assert.Equal(t, "evalcache", joinKey("", "evalcache"))
}
