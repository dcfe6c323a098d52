// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package listenstore reads prior listens from the production PostgreSQL
// listen store for enrichment.
//
// It is selected with HISTORY_SOURCE=postgres. The store is expected to
// expose a listen table:
//
//	CREATE TABLE listen (
//	    user_name      TEXT        NOT NULL,
//	    recording_mbid UUID,
//	    listened_at    TIMESTAMPTZ NOT NULL
//	);
//
// History aggregates max(listened_at) per (user_name, recording_mbid) in
// the database, so only one row per pair crosses the wire. A missing table
// is reported as recommend.ErrPathNotFound; any other query failure as
// recommend.ErrFileNotFetched.
package listenstore
