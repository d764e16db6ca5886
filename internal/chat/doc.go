// Package chat implements the client core: session lifecycle and
// conversation synchronization.
//
// # Overview
//
// Two responsibilities live here. The session side owns authentication
// state (current user, bearer token, authenticated flag): Login requests a
// verification code, VerifyCode populates the session atomically, Logout
// destroys it. The synchronization side owns the user directory cache, the
// active conversation selection, the ordered message log for that
// selection, and the live channel subscription that keeps the log current.
//
// # Collaborators
//
// The client talks to the backend through two small contracts:
//
//   - API: request/response operations (login, verify, directory, history,
//     send), implemented by internal/api over HTTP.
//   - Dialer/LiveChannel: the bidirectional event stream, implemented by
//     internal/channel over WebSocket.
//
// The presentation layer consumes the exported operations and accessors as
// its entire interface to the core; it never touches the token or the
// channel directly.
//
// # Synchronization rules
//
//   - The log is scoped to exactly one (current user, partner) pair and is
//     cleared on every selection change; logs never merge across partners.
//   - A sent message is appended as a local echo before any channel
//     round trip completes.
//   - Inbound events are appended only when their sender is the currently
//     selected partner, so events for other conversations — and echoes of
//     the user's own sends — are discarded.
//   - History responses carry a generation token; a response that arrives
//     after the selection changed is dropped.
//   - Logout closes the channel subscription before clearing state, so no
//     event can be delivered into a dead session.
package chat
