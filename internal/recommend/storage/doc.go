// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package storage provides model persistence for recommendation runs.
//
// Models are gob encoded, gzip compressed and checksummed with SHA-256.
// Each file carries its metadata, including the model id and report file
// that end up in the provenance of emitted messages.
//
// # Storage Format
//
//	filename: {algorithm_name}_v{version}.gob.gz
//
//	structure:
//	  - Metadata (ModelMetadata)
//	  - CompressedData (gzip-compressed gob-encoded model state)
//
// Files are written to a temporary name and renamed into place.
//
// # Model Selection
//
// Loader implements recommend.ModelLoader. It picks the stored version with
// the newest TrainedAt, breaking ties by the higher version, and restores it
// as an algorithms.ALS.
//
// # Usage Example
//
//	store, err := storage.NewStore("/data/models")
//	if err != nil {
//	    return err
//	}
//	meta, err := storage.SaveALS(ctx, store, als, storage.ModelMetadata{})
//
//	loader := storage.NewLoader(store, storage.ALSModelName, logger)
//	model, modelMeta, err := loader.LatestModel(ctx)
//
// Old versions are removed with Prune:
//
//	removed, err := store.Prune(ctx, storage.ALSModelName, 3)
//
// # Thread Safety
//
// Store methods are safe for concurrent use within a process.
package storage
