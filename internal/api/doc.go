// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package api provides the operational HTTP surface of the Cadence server,
routed with chi.

# Endpoints

	GET  /metrics            Prometheus exposition
	GET  /api/v1/health      service status, engine stats, dependency checks
	GET  /api/v1/runs        run ledger records, newest first (?limit=1..500)
	GET  /api/v1/runs/{id}   one run ledger record
	POST /api/v1/runs        start a manual run

Run records carry metadata only (state, transitions, digest, model
provenance), never message payloads.

# Triggering Runs

POST /api/v1/runs accepts an optional JSON body:

	{"limit": 500, "users": ["alice", "bob"], "mode": "user_subset"}

Omitted fields fall back to the configured defaults. The run executes in the
background; the response is 202 Accepted with the run id and a Location
header pointing at its record. A run already in progress yields 409, an
invalid body 400. The endpoint is rate limited per client IP with
go-chi/httprate; rejections are 429 and counted in
cadence_api_rate_limit_hits_total.

# Responses

Every JSON response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}}
	{"success": false, "error": {"code": "CONFLICT", "message": "..."}, "meta": {...}}

# Middleware

Requests get an X-Request-ID (client supplied or generated) that is stored in
the logging context. Request count and latency are recorded per chi route
pattern.
*/
package api
