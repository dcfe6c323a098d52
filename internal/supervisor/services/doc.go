// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package services provides suture.Service wrappers for Cadence components.

Each wrapper adapts a component lifecycle to suture's Serve(ctx) pattern and
implements fmt.Stringer so supervisor events name the service.

# Available Services

RecommendService:
  - Runs the recommendation pipeline on a cron schedule (robfig/cron/v3)
  - Optionally runs once when the service starts
  - Trigger starts a manual run in the background and returns its run id
  - RunOnce executes a run synchronously, for the -once command line mode
  - Records every accepted run in the run ledger and prunes expired records
  - At most one run at a time; further requests get recommend.ErrRunInProgress

HTTPServerService:
  - Runs the operational HTTP server
  - Shuts down gracefully on context cancellation

BrokerService:
  - Watches the embedded NATS server and shuts it down on cancellation

# Run Identity

Every run gets a UUID run id before it starts. The id is recorded in the
ledger and attached to the run context as the logging correlation id, so
log lines and delivered message ids of one run share it.
*/
package services
