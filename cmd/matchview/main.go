package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"robust-weight-transfer/internal/preview"
	"robust-weight-transfer/internal/scene"
	"robust-weight-transfer/internal/transfer"
)

// matchview renders the target mesh with matched vertices in green and
// unmatched vertices in red, so thresholds can be tuned before running the
// full transfer.
func main() {
	scenePath := flag.String("scene", "", "Path to scene JSON file")
	sourceMesh := flag.String("source", "", "Source mesh name")
	targetMesh := flag.String("target", "", "Target mesh name")
	output := flag.String("output", "matches.webp", "Output image (.webp or .tga)")
	distance := flag.Float64("distance", 0.05, "Match distance as ratio of source bbox diagonal")
	angle := flag.Float64("angle", 30, "Max normal angle difference in degrees")
	flip := flag.Bool("flip", false, "Also accept matches with flipped normals")
	size := flag.Int("size", 512, "Output image edge length in pixels")

	flag.Parse()

	if *scenePath == "" || *sourceMesh == "" || *targetMesh == "" {
		fmt.Fprintln(os.Stderr, "Usage: matchview -scene scene.json -source SrcMesh -target DstMesh [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	sc, err := scene.Load(*scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	opts := transfer.DefaultOptions()
	opts.DistanceRatio = *distance
	opts.AngleDegrees = *angle
	opts.FlipNormals = *flip

	pipe, err := transfer.NewPipeline(sc, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := pipe.FindMatches(context.Background(), *sourceMesh, *targetMesh)
	if err != nil {
		color.Red("Matching failed: %v", err)
		os.Exit(1)
	}

	positions, _, err := sc.MeshData(*targetMesh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	triangles, err := sc.Triangles(*targetMesh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	matched := make([]bool, len(positions))
	for _, v := range res.Matched {
		matched[v] = true
	}

	popts := preview.DefaultOptions()
	popts.Size = *size
	img := preview.RenderMatches(positions, triangles, matched, popts)

	if err := preview.WriteImage(*output, img); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	total := len(positions)
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(len(res.Matched)) / float64(total)
	}
	color.Green("Matched %d/%d vertices (%.1f%%)", len(res.Matched), total, pct)
	fmt.Printf("Saved: %s\n", *output)
}
