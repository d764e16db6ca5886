// ABOUTME: Room identifier derivation for two-party conversations
// ABOUTME: Both participants compute the same room independent of who initiates

package chat

// RoomID derives the live-channel room shared by two participants by
// sorting the identities lexicographically and joining them. The result is
// symmetric: RoomID(a, b) == RoomID(b, a).
func RoomID(a, b Identity) string {
	x, y := string(normalizeIdentity(a)), string(normalizeIdentity(b))
	if x > y {
		x, y = y, x
	}
	return x + "_" + y
}
