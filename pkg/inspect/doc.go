// Package inspect serves a devtools view of a running loom Runtime.
//
// Routes:
//
//	GET /stats                 runtime summary (JSON)
//	GET /roots                 mounted render roots (JSON)
//	GET /roots/{root}/html     host tree of one root (text/html, ?pretty=1)
//	GET /instances/{id}        one instance with its children (JSON)
//	GET /metrics               Prometheus exposition, when a Gatherer is set
//	GET /ws                    websocket stream of commit records
//
// The Runtime is single threaded, so every handler reads it through
// Scheduler.Do. The scheduler must be running (Scheduler.Run) while the
// inspector serves requests.
//
// The websocket stream sends binary frames encoded by package wire: one
// Hello frame, then one Commit frame per committed batch. Clients that fall
// behind by more than Config.SendBuffer frames are disconnected.
package inspect
