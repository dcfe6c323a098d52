// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package supervisor provides process supervision for the Cadence server using
suture v4.

# Overview

Long-running services are organized into three layers:

	RootSupervisor ("cadence")
	├── MessagingSupervisor ("messaging-layer")
	│   └── BrokerService (embedded NATS, if NATS_EMBEDDED_SERVER)
	├── BatchSupervisor ("batch-layer")
	│   └── RecommendService (cron schedule and manual triggers)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashed service is restarted by its layer. Failures are counted with
exponential decay; once the count exceeds FailureThreshold the layer waits
FailureBackoff before restarting again.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddBatchService(recommendSvc)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-errCh

Supervisor events (service failures, backoff, restarts) are logged through
sutureslog with the slog bridge of the logging package.

# Not Supervised

DuckDB, the model store and the run ledger are embedded libraries opened once
by cmd/server and closed on exit. A failed batch run is recorded in the
ledger and does not crash the recommendation service.

# Shutdown

Canceling the context stops every layer. Services that do not return within
ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
