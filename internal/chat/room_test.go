// ABOUTME: Tests for room identifier derivation
// ABOUTME: Covers symmetry, ordering, and identity normalization

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomID_OrderIndependent(t *testing.T) {
	assert.Equal(t, RoomID("u1", "u2"), RoomID("u2", "u1"))
}

func TestRoomID_SortsLexicographically(t *testing.T) {
	assert.Equal(t, "abc_xyz", RoomID("xyz", "abc"))
	assert.Equal(t, "abc_xyz", RoomID("abc", "xyz"))
}

func TestRoomID_NormalizesWhitespace(t *testing.T) {
	assert.Equal(t, RoomID("u1", "u2"), RoomID(" u1 ", "u2"))
}
