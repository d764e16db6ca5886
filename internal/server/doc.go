// Package server implements the chat backend's HTTP API and live channel.
//
// # Overview
//
// The server exposes a small JSON API for login, verification, the user
// directory, and message history, plus a WebSocket endpoint for live
// delivery. Routing is built on chi with optional CORS for browser
// clients.
//
// # Components
//
//   - Server: dependency wiring and route registration
//   - Hub: registry of live connections and room subscriptions
//   - handleWS: per-connection read loop dispatching channel frames
//   - SeedUsers: optional startup user creation from a TOML file
//
// # Live channel
//
// Clients join rooms (conversation rooms and their own identity) and
// publish room or direct frames. The hub fans room frames out to every
// subscriber except the originator, and routes direct frames by user ID.
// The sender identity on every frame is taken from the authenticated
// session, never from the frame itself.
package server
