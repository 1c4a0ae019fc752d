// Package http provides HTTP handlers and middleware for the fitness
// scheduling API.
//
// The router exposes the following endpoints:
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id},
//     DELETE /events/{id}: event management endpoints exchanging the
//     `eventDTO` payload defined in event_handler.go. Mutating responses
//     include conflict warnings, and list responses can expand recurring
//     series via the `expand_recurring=true` query parameter. Listing is
//     also served as GET /scheduling/events, which additionally accepts the
//     start_date, end_date, user_id, and event_type parameter names.
//   - POST /events/{id}/cancel: cancels an event, or a single occurrence of
//     a recurring series when the body carries an `occurrence_date`.
//   - GET /events/calendar.ics: renders the caller's events for the
//     requested window as an iCalendar feed.
//   - POST /scheduling/check-conflicts: ad-hoc conflict probe for a
//     proposed time range and participant set.
//   - POST /scheduling/smart-schedule: composes conflict-free workout
//     proposals from stored preferences, availability, and readiness. A user
//     without stored preferences gets a 422 configuration error.
//   - GET /preferences, PUT /preferences, GET /preferences/availability,
//     PUT /preferences/availability, POST /preferences/readiness: scheduling
//     preference endpoints exchanging the payloads defined in
//     preference_handler.go.
//
// Identity is resolved from the gateway supplied X-User-ID and X-User-Role
// headers by the RequireIdentity middleware. Request/response DTOs live
// alongside their respective handlers so tests and documentation share the
// same ground truth.
package http
