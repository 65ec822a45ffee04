// Package batch transfers weights from one source mesh to many targets
// using a worker pool. Matching and inpainting run concurrently; bindings
// are created up front and finished matrices are applied sequentially, so
// the scene is only mutated outside the pool.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/transfer"
)

// Config holds shared resources for a batch run.
type Config struct {
	Options transfer.Options
	Workers int
	Quiet   bool
}

// Result holds the outcome of processing one target mesh.
type Result struct {
	Target    string `json:"target"`
	Matched   int    `json:"matched"`
	Inpainted int    `json:"inpainted"`
	Vertices  int    `json:"vertices"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type computed struct {
	idx     int
	weights *scene.WeightMatrix
}

// Run transfers weights from sourceMesh to every target using a worker pool.
func Run(ctx context.Context, sc *scene.Scene, cfg Config, sourceMesh string, targets []string) ([]Result, error) {
	opts := cfg.Options
	opts.Progress = nil

	pipe, err := transfer.NewPipeline(sc, opts)
	if err != nil {
		return nil, err
	}

	// All scene mutation happens before and after the pool. Normals and
	// adjacency are cached lazily inside the mesh, so warm them here too or
	// the workers would race on the shared source mesh.
	if _, _, err := sc.MeshData(sourceMesh); err != nil {
		return nil, err
	}
	for _, t := range targets {
		if err := pipe.PrepareBinding(sourceMesh, t); err != nil {
			return nil, fmt.Errorf("batch: prepare %s: %w", t, err)
		}
		if _, _, err := sc.MeshData(t); err != nil {
			return nil, err
		}
		if _, err := sc.Adjacency(t); err != nil {
			return nil, err
		}
	}

	total := len(targets)
	results := make([]Result, total)
	done := make([]computed, 0, total)
	var mu sync.Mutex
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 && !cfg.Quiet {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f meshes/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	targetChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range targetChan {
				r, weights := processTarget(ctx, pipe, sourceMesh, targets[idx])
				results[idx] = r
				if weights != nil {
					mu.Lock()
					done = append(done, computed{idx: idx, weights: weights})
					mu.Unlock()
				}
				processed.Add(1)
			}
		}()
	}

	for i := range targets {
		targetChan <- i
	}
	close(targetChan)

	wg.Wait()
	close(stop)

	// Sequential write-back
	for _, c := range done {
		if err := pipe.ApplyWeights(targets[c.idx], c.weights); err != nil {
			results[c.idx].Success = false
			results[c.idx].Error = err.Error()
		}
	}

	return results, ctx.Err()
}

func processTarget(ctx context.Context, pipe *transfer.Pipeline, sourceMesh, target string) (Result, *scene.WeightMatrix) {
	weights, tr, err := pipe.ComputeWeights(ctx, sourceMesh, target)
	if err != nil {
		return Result{Target: target, Error: err.Error()}, nil
	}
	return Result{
		Target:    target,
		Matched:   tr.MatchedCount,
		Inpainted: tr.UnmatchedCount,
		Vertices:  tr.TotalVertices,
		Success:   true,
	}, weights
}
