// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package database provides the DuckDB layer of Cadence.

DB reads the batch datasets straight from parquet with read_parquet and
implements recommend.Sources and recommend.HistorySource. It also
implements recommend.RawRecorder, storing the enriched rows of each run in
the raw_recommendations table and exporting them to parquet.

# Datasets

Each dataset lives under the data directory either as <name>.parquet or as
a <name>/ directory of parquet files:

	users                spark_user_id, user_id
	recordings           recording_id, recording_mbid
	candidate_set        spark_user_id, recording_id
	recording_discovery  user_id, recording_mbid, latest_listened_at

A missing dataset yields recommend.ErrPathNotFound. A dataset that exists
but cannot be read yields recommend.ErrFileNotFetched.

# Raw Recommendations

	raw_recommendations(run_id, user_id, recording_mbid, score,
	                    latest_listened_at, created_at)

SaveRawRecommendations replaces the rows of a run id and writes
<raw dir>/<run id>.parquet with ZSTD compression.

# Thread Safety

DB is safe for concurrent use. Queries carry a timeout when the caller's
context has none.
*/
package database
