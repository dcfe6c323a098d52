// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/recommend/algorithms"
)

// ALSModelName is the store name of ALS models.
const ALSModelName = "als"

// Loader serves the most recently trained ALS model from a Store.
type Loader struct {
	store  *Store
	name   string
	logger zerolog.Logger
}

// NewLoader creates a loader reading models stored under name.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLoader(store *Store, name string, logger zerolog.Logger) *Loader {
	if name == "" {
		name = ALSModelName
	}
	return &Loader{
		store:  store,
		name:   name,
		logger: logger.With().Str("component", "model_loader").Logger(),
	}
}

// LatestModel implements recommend.ModelLoader.
func (l *Loader) LatestModel(ctx context.Context) (recommend.Model, recommend.ModelMeta, error) {
	meta, err := l.store.Newest(ctx, l.name)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return nil, recommend.ModelMeta{}, fmt.Errorf("%w: %w", recommend.ErrNoModel, err)
		}
		return nil, recommend.ModelMeta{}, fmt.Errorf("list models: %w", err)
	}

	var state algorithms.ALSState
	if _, err := l.store.Load(ctx, l.name, meta.Version, &state); err != nil {
		return nil, recommend.ModelMeta{}, fmt.Errorf("load %s v%d: %w", l.name, meta.Version, err)
	}

	model, err := algorithms.RestoreALS(&state)
	if err != nil {
		return nil, recommend.ModelMeta{}, fmt.Errorf("restore %s v%d: %w", l.name, meta.Version, err)
	}

	l.logger.Debug().
		Str("model_id", meta.ModelID).
		Int("version", meta.Version).
		Int("users", model.UserCount()).
		Int("items", model.ItemCount()).
		Msg("Loaded model")

	return model, recommend.ModelMeta{
		ModelID:    meta.ModelID,
		ReportFile: meta.ReportFile,
		CreatedAt:  meta.TrainedAt,
	}, nil
}

// SaveALS stores a trained ALS model as the next version under ALSModelName.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func SaveALS(ctx context.Context, store *Store, model *algorithms.ALS, meta ModelMetadata) (ModelMetadata, error) {
	state := model.State()
	meta.UserCount = len(state.UserIDs)
	meta.ItemCount = len(state.ItemIDs)
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = state.TrainedAt
	}
	return store.Save(ctx, ALSModelName, 0, state, meta)
}

var _ recommend.ModelLoader = (*Loader)(nil)
