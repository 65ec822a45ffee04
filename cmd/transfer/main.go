package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"robust-weight-transfer/internal/batch"
	"robust-weight-transfer/internal/config"
	"robust-weight-transfer/internal/laplacian"
	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/transfer"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	scenePath := flag.String("scene", "", "Path to scene JSON file")
	sourceMesh := flag.String("source", "", "Source mesh name")
	targetMesh := flag.String("target", "", "Target mesh name, or comma-separated list for a batch run")
	workers := flag.Int("workers", runtime.NumCPU(), "Worker goroutines for batch runs")
	report := flag.String("report", "", "Write per-target batch results to this JSON file")
	output := flag.String("output", "", "Output scene path (default: overwrite input)")
	distance := flag.Float64("distance", 0, "Match distance as ratio of source bbox diagonal (default: 0.05)")
	angle := flag.Float64("angle", 0, "Max normal angle difference in degrees (default: 30)")
	flip := flag.Bool("flip", false, "Also accept matches with flipped normals")
	search := flag.String("search", "", "Match search: surface or vertex (default: surface)")
	backend := flag.String("backend", "", "Laplacian backend: cotangent or pointcloud (default: cotangent)")
	knn := flag.Int("knn", 0, "Neighbors per vertex for the pointcloud backend (default: 8)")
	noSmooth := flag.Bool("no-smooth", false, "Skip the post-transfer smoothing pass")
	smoothIter := flag.Int("smooth-iter", 0, "Smoothing iterations (default: 10)")
	smoothAlpha := flag.Float64("smooth-alpha", 0, "Smoothing blend factor (default: 0.2)")
	prune := flag.Float64("prune", 0, "Zero weights below this threshold after transfer and renormalize")
	deformedSource := flag.Bool("deformed-source", false, "Match against the posed source mesh")
	deformedTarget := flag.Bool("deformed-target", false, "Match against the posed target mesh")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	if *verbose {
		transfer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg.Smooth = true
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Scene:         *scenePath,
		Output:        *output,
		DistanceRatio: *distance,
		AngleDegrees:  *angle,
		Backend:       *backend,
		Search:        *search,
	})
	if *flip {
		cfg.FlipNormals = true
	}
	if *knn > 0 {
		cfg.PointCloudNeighbors = *knn
	}
	if *smoothIter > 0 {
		cfg.SmoothIterations = *smoothIter
	}
	if *smoothAlpha > 0 {
		cfg.SmoothAlpha = *smoothAlpha
	}
	if *noSmooth {
		cfg.Smooth = false
	}
	if *prune > 0 {
		cfg.PruneThreshold = *prune
	}
	if *deformedSource {
		cfg.UseDeformedSource = true
	}
	if *deformedTarget {
		cfg.UseDeformedTarget = true
	}

	if cfg.ScenePath == "" || *sourceMesh == "" || *targetMesh == "" {
		fmt.Fprintln(os.Stderr, "Usage: transfer -scene scene.json -source SrcMesh -target DstMesh [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = cfg.ScenePath
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sc, err := scene.Load(cfg.ScenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Robust Weight Transfer: %s -> %s\n", *sourceMesh, *targetMesh)
	fmt.Printf("Distance: %.3f, Angle: %.1f°, Backend: %s\n", opts.DistanceRatio, opts.AngleDegrees, opts.Backend)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var targets []string
	for _, t := range strings.Split(*targetMesh, ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}

	start := time.Now()

	if len(targets) > 1 {
		if err := runBatch(ctx, sc, opts, *sourceMesh, targets, *workers, cfg.PruneThreshold, *report); err != nil {
			os.Exit(1)
		}
	} else {
		opts.Progress = func(message string, percent int) {
			fmt.Printf("[%3d%%] %s\n", percent, message)
		}

		pipe, err := transfer.NewPipeline(sc, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res, err := pipe.TransferWeights(ctx, *sourceMesh, targets[0])
		if err != nil {
			if errors.Is(err, transfer.ErrEmptyMatch) {
				color.Red("No vertices matched. Try a larger -distance or -angle, or -flip.")
			} else {
				color.Red("Transfer failed: %v", err)
			}
			os.Exit(1)
		}

		if cfg.PruneThreshold > 0 {
			if err := pipe.PruneSmallWeights(targets[0], cfg.PruneThreshold); err != nil {
				color.Red("Prune failed: %v", err)
				os.Exit(1)
			}
		}

		fmt.Println("------------------------------------------------------------")
		color.Green("Matched %d/%d vertices directly, inpainted %d",
			res.MatchedCount, res.TotalVertices, res.UnmatchedCount)
	}

	fmt.Printf("Done in %.2fs\n", time.Since(start).Seconds())

	if err := sc.Save(cfg.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving scene: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved: %s\n", cfg.OutputPath)
}

func runBatch(ctx context.Context, sc *scene.Scene, opts transfer.Options, source string, targets []string, workers int, pruneThreshold float64, reportPath string) error {
	fmt.Printf("Batch: %d targets, %d workers\n", len(targets), workers)

	results, err := batch.Run(ctx, sc, batch.Config{Options: opts, Workers: workers}, source, targets)
	if err != nil {
		color.Red("Batch failed: %v", err)
		return err
	}

	if reportPath != "" {
		if err := batch.WriteReport(reportPath, results); err != nil {
			color.Red("Report failed: %v", err)
			return err
		}
		fmt.Printf("Report: %s\n", reportPath)
	}

	pipe, err := transfer.NewPipeline(sc, opts)
	if err != nil {
		return err
	}

	fmt.Println("------------------------------------------------------------")
	failed := 0
	for _, r := range results {
		if r.Success {
			if pruneThreshold > 0 {
				if err := pipe.PruneSmallWeights(r.Target, pruneThreshold); err != nil {
					color.Red("%s: prune failed: %v", r.Target, err)
					failed++
					continue
				}
			}
			color.Green("%s: matched %d/%d, inpainted %d", r.Target, r.Matched, r.Vertices, r.Inpainted)
		} else {
			failed++
			color.Red("%s: %s", r.Target, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(targets))
	}
	return nil
}

func buildOptions(cfg config.Config) (transfer.Options, error) {
	opts := transfer.DefaultOptions()
	opts.DistanceRatio = cfg.DistanceRatio
	opts.AngleDegrees = cfg.AngleDegrees
	opts.FlipNormals = cfg.FlipNormals
	opts.Smooth = cfg.Smooth
	opts.SmoothIterations = cfg.SmoothIterations
	opts.SmoothAlpha = cfg.SmoothAlpha
	opts.SmoothExcludeMatched = cfg.SmoothExcludeMatched
	opts.UseDeformedSource = cfg.UseDeformedSource
	opts.UseDeformedTarget = cfg.UseDeformedTarget
	opts.PointCloudNeighbors = cfg.PointCloudNeighbors

	switch cfg.Search {
	case "surface":
		opts.Search = transfer.SearchSurface
	case "vertex":
		opts.Search = transfer.SearchNearestVertex
	default:
		return opts, fmt.Errorf("unknown search strategy %q", cfg.Search)
	}

	switch cfg.Backend {
	case "cotangent":
		opts.Backend = laplacian.BackendCotangent
	case "pointcloud":
		opts.Backend = laplacian.BackendPointCloud
	default:
		return opts, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return opts, nil
}
