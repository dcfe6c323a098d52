// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package runledger keeps a durable history of recommendation runs in
// BadgerDB.
//
// A record is created by Begin, updated on every state transition through
// the recommend.RunObserver interface, and completed by Finish with the
// run's digest and counters. Records never hold message payloads.
//
// Storage layout:
//
//	run:<run_id>                 JSON Record
//	run_time:<start_ns>:<run_id> run_id (time index for List)
//
// Prune deletes finished runs older than the configured retention.
// RecoverInterrupted marks runs a crashed process left in progress as
// FAILED so they do not appear to be running forever.
package runledger
