// Package api serves a read-only HTTP status API for a running player.
//
// Routes, all under /api/v1 except /metrics:
//
//	GET /health                liveness and version
//	GET /system                runtime, broker and database statistics
//	GET /status                the live session: position, walls, counters
//	GET /sessions              recorded sessions (?lobby=&limit=)
//	GET /sessions/{id}         one recorded session
//	GET /sessions/{id}/moves   the session's moves in order
//	GET /ws                    WebSocket feed of session events
//	GET /metrics               Prometheus exposition, when metrics are enabled
//
// WebSocket clients send {"type":"subscribe","payload":{"channels":[...]}}
// naming the event channels they want ("game.state", "game.move",
// "session.finished", or "*" for all). The Hub satisfies session.Events, so
// a session broadcasts straight into it.
//
// The API has no authentication and binds to 127.0.0.1 by default.
package api
