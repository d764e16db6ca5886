// Package channel implements the live event channel over WebSocket.
//
// Client-emitted frames: join, room_message, direct_message. Server-emitted
// frames: room_message and direct_message; connection open and close are
// surfaced through the OnConnect/OnDisconnect handlers. The package
// implements chat.Dialer and chat.LiveChannel; reconnection is left to the
// caller, the channel only reflects its own status.
package channel
