// Package http provides HTTP handlers and middleware for the room monitor API.
//
// The router exposes the following endpoints:
//   - GET /schedules, POST /schedules, PUT /schedules/{id}, DELETE /schedules/{id}:
//     schedule management exchanging the `scheduleDTO` payload defined in
//     schedule_handler.go. Listings accept user_id, room_id, from, to (civil
//     dates) and a comma separated status, and carry double-booking warnings.
//   - POST /schedules/{id}/status: body {"status"} with active, completed or cancelled.
//   - POST /schedules/recurring: body {"template","from","to"}. Creates one
//     instance per matching weekday and lists per-date rejections.
//   - GET /entries, POST /entries/check-in, POST /entries/{id}/check-out: room
//     presence records exchanging the `entryDTO` payload defined in entry_handler.go.
//   - POST /entries/import: raw upstream attendance export; malformed records are
//     skipped and reported by index.
//   - GET /reports?from=&to=&room_id=&user_id=&approximate=: reconciled attendance
//     figures for the dashboard.
//   - GET /rooms, POST /rooms, GET /users, POST /users: catalog endpoints.
//   - GET /events: websocket stream of bus events, optionally narrowed by ?topics=.
//
// Rule rejections answer 409 with error_code set to the rule kind
// (invalid_range, duration_exceeded, past_date, user_conflict, room_conflict).
// Field validation answers 422 with a per-field errors map. User facing
// messages are in Spanish; times are rendered in the configured zone.
package http
