// Package http provides HTTP handlers and middleware for the UNMUTE API.
//
// The router exposes the following endpoints:
//   - GET /api/emotions: lists the selectable emotion categories with their
//     labels, colors, and capacity caps.
//   - GET /api/rooms?emotion=: returns the newest open room for the category,
//     creating one when none qualifies.
//   - POST /api/rooms: applies a join or leave action. Body:
//     {"roomId","action"} where action is "join" or "leave". Join responds
//     409 with ROOM_FULL or ROOM_EXPIRED when the room cannot admit.
//   - POST /api/sessions, PATCH /api/sessions: open and close a participant's
//     presence span, exchanging the sessionDTO in session_handler.go. A
//     caller without an anonymous identifier is issued one on start.
//   - GET/POST /api/anonymous-limit: read and consume the per-device
//     anonymous join allowance. POST responds 403 with LIMIT_REACHED once
//     the allowance is spent.
//   - POST /api/media/token: issues the audio-channel join credential, or an
//     audioEnabled:false payload when live audio is unavailable.
//   - POST/GET /api/reactions, POST /api/reflections, POST /api/feedback,
//     GET /api/analytics: session telemetry handled in telemetry_handler.go.
//   - GET/POST /api/terms: terms acceptance for authenticated principals.
//   - POST/PUT /api/donate: donation order creation and payment verification.
//   - GET/DELETE /api/timer?emotion=&roomId=: the room's session countdown
//     state and early clear.
//   - GET /api/realtime?roomId= or ?emotion=: WebSocket subscription to
//     presence, reaction, and timer events.
//
// Request/response DTOs live alongside their respective handlers so tests
// and documentation share the same ground truth.
package http
