// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package alstest

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cadence/internal/recommend/algorithms"
)

// Interaction is one implicit-feedback observation: how strongly a user
// engaged with a recording, typically a listen count.
type Interaction struct {
	UserID     int64
	ItemID     int64
	Confidence float64
}

// Config contains the training parameters.
type Config struct {
	// NumFactors is the dimension of the latent factor vectors.
	NumFactors int

	// NumIterations is the number of alternating passes.
	NumIterations int

	// Regularization is the L2 regularization parameter.
	Regularization float64

	// Alpha scales the confidence: c = 1 + alpha * r.
	Alpha float64

	// MinConfidence drops weaker interactions.
	MinConfidence float64

	// NumWorkers is the number of goroutines solving rows.
	NumWorkers int
}

func (c Config) withDefaults() Config {
	if c.NumFactors <= 0 {
		c.NumFactors = 8
	}
	if c.NumIterations <= 0 {
		c.NumIterations = 10
	}
	if c.Regularization <= 0 {
		c.Regularization = 0.01
	}
	if c.Alpha <= 0 {
		c.Alpha = 40.0
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.1
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 2
	}
	return c
}

// Fit factorizes interactions with alternating least squares and returns
// the model state at version 1. Duplicate interactions keep the highest
// confidence.
//
// The objective minimizes
// sum_{u,i} c_ui * (p_ui - x_u' * y_i)^2 + lambda * (||x_u||^2 + ||y_i||^2)
// where p_ui = 1 if user u listened to recording i and 0 otherwise.
//
//nolint:gocyclo // alternating optimization
func Fit(ctx context.Context, cfg Config, interactions []Interaction) (*algorithms.ALSState, error) {
	cfg = cfg.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userIndex := make(map[int64]int)
	itemIndex := make(map[int64]int)
	var userIDs, itemIDs []int64
	for _, inter := range interactions {
		if inter.Confidence < cfg.MinConfidence {
			continue
		}
		if _, ok := userIndex[inter.UserID]; !ok {
			userIndex[inter.UserID] = len(userIDs)
			userIDs = append(userIDs, inter.UserID)
		}
		if _, ok := itemIndex[inter.ItemID]; !ok {
			itemIndex[inter.ItemID] = len(itemIDs)
			itemIDs = append(itemIDs, inter.ItemID)
		}
	}

	state := &algorithms.ALSState{
		NumFactors:     cfg.NumFactors,
		Regularization: cfg.Regularization,
		Alpha:          cfg.Alpha,
		Version:        1,
		TrainedAt:      time.Now().UTC(),
		UserIDs:        userIDs,
		ItemIDs:        itemIDs,
	}
	if len(userIDs) == 0 || len(itemIDs) == 0 {
		return state, nil
	}

	userItems := make(map[int]map[int]float64)
	for _, inter := range interactions {
		if inter.Confidence < cfg.MinConfidence {
			continue
		}
		ui := userIndex[inter.UserID]
		ii := itemIndex[inter.ItemID]
		if userItems[ui] == nil {
			userItems[ui] = make(map[int]float64)
		}
		conf := 1.0 + cfg.Alpha*inter.Confidence
		if conf > userItems[ui][ii] {
			userItems[ui][ii] = conf
		}
	}

	itemUsers := make(map[int]map[int]float64)
	for ui, itemMap := range userItems {
		for ii, conf := range itemMap {
			if itemUsers[ii] == nil {
				itemUsers[ii] = make(map[int]float64)
			}
			itemUsers[ii][ui] = conf
		}
	}

	x := initFactors(len(userIDs), cfg.NumFactors)
	y := initFactors(len(itemIDs), cfg.NumFactors)

	for iter := 0; iter < cfg.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solveSide(x, y, userItems, cfg)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solveSide(y, x, itemUsers, cfg)
	}

	state.UserFactors = x
	state.ItemFactors = y
	return state, nil
}

// Train fits interactions and restores the result as a scorable model.
func Train(tb testing.TB, cfg Config, interactions []Interaction) *algorithms.ALS {
	tb.Helper()

	state, err := Fit(context.Background(), cfg, interactions)
	if err != nil {
		tb.Fatalf("Fit() error = %v", err)
	}
	model, err := algorithms.RestoreALS(state)
	if err != nil {
		tb.Fatalf("RestoreALS() error = %v", err)
	}
	return model
}

// Deterministic small initialization.
func initFactors(rows, numFactors int) [][]float64 {
	m := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		m[r] = make([]float64, numFactors)
		for f := 0; f < numFactors; f++ {
			m[r][f] = 0.1 * (float64((r*numFactors+f)%1000)/1000.0 - 0.5)
		}
	}
	return m
}

// solveSide recomputes every row of target with the other side held fixed.
// observed maps a target row to its (fixed row -> confidence) entries.
func solveSide(target, fixed [][]float64, observed map[int]map[int]float64, cfg Config) {
	gram := gramian(fixed, cfg.NumFactors)

	var wg sync.WaitGroup
	rows := len(target)
	chunkSize := (rows + cfg.NumWorkers - 1) / cfg.NumWorkers

	for start := 0; start < rows; start += chunkSize {
		end := min(start+chunkSize, rows)
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for r := from; r < to; r++ {
				target[r] = solveRow(observed[r], fixed, gram, cfg.Regularization)
			}
		}(start, end)
	}
	wg.Wait()
}

// gramian returns M'M for a rows x n matrix.
func gramian(m [][]float64, n int) [][]float64 {
	g := make([][]float64, n)
	for f := range g {
		g[f] = make([]float64, n)
	}
	for _, row := range m {
		for f1 := 0; f1 < n; f1++ {
			for f2 := f1; f2 < n; f2++ {
				g[f1][f2] += row[f1] * row[f2]
			}
		}
	}
	for f1 := 0; f1 < n; f1++ {
		for f2 := 0; f2 < f1; f2++ {
			g[f1][f2] = g[f2][f1]
		}
	}
	return g
}

// solveRow solves (F'C F + lambda*I) x = F'C p for one row, where F is the
// fixed side, C the row's confidences and p its preference indicator.
//
//nolint:gocritic // A follows standard linear algebra notation
func solveRow(entries map[int]float64, fixed, gram [][]float64, lambda float64) []float64 {
	n := len(gram)

	A := make([][]float64, n)
	for f := range A {
		A[f] = make([]float64, n)
		copy(A[f], gram[f])
		A[f][f] += lambda
	}

	b := make([]float64, n)
	for j, conf := range entries {
		v := fixed[j]
		cMinus1 := conf - 1.0

		for f1 := 0; f1 < n; f1++ {
			for f2 := f1; f2 < n; f2++ {
				delta := cMinus1 * v[f1] * v[f2]
				A[f1][f2] += delta
				if f1 != f2 {
					A[f2][f1] += delta
				}
			}
			b[f1] += conf * v[f1]
		}
	}

	return solveLinearSystem(A, b)
}

// solveLinearSystem solves A*x = b using Cholesky decomposition.
//
//nolint:gocritic // A, L follow standard linear algebra notation
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)

	// A = L * L'
	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					// Not positive definite
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution: L * z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// Back substitution: L' * x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}
