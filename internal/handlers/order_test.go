package handlers

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^EPP-\d{8}-[0-9A-F]{10}$`)
	assert.Regexp(t, pattern, generateOrderNumber())
}

func TestGenerateOrderNumberUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10000; i++ {
		n := generateOrderNumber()
		require.False(t, seen[n], "order number %s repeated", n)
		seen[n] = true
	}
}
