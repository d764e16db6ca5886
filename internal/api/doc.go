// Package api implements the chat.API contract over HTTP JSON.
//
// Endpoints: POST /api/login, POST /api/verifyotp, GET /api/users,
// GET /api/message/receive, POST /api/message/send. Requests after
// verification carry the session's bearer token. Error responses are
// surfaced as *Error with the backend's displayable message.
package api
