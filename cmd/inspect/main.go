package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/davecgh/go-spew/spew"

	"robust-weight-transfer/internal/scene"
)

func main() {
	verbose := flag.Bool("v", false, "Dump raw joint and binding structures")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-v] scene.json")
		os.Exit(1)
	}

	sc, err := scene.Load(flag.Arg(0))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	names := sc.MeshNames()
	fmt.Printf("Meshes: %d, Joints: %d\n", len(names), len(sc.Joints))

	for _, name := range names {
		m, _ := sc.Mesh(name)
		minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
		maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
		for _, p := range m.Positions {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			minZ = math.Min(minZ, p.Z)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
			maxZ = math.Max(maxZ, p.Z)
		}
		fmt.Printf("  Mesh %q: verts=%d, tris=%d\n", name, len(m.Positions), len(m.Triangles))
		fmt.Printf("    BBox: X[%.3f, %.3f] Y[%.3f, %.3f] Z[%.3f, %.3f]\n", minX, maxX, minY, maxY, minZ, maxZ)
		fmt.Printf("    Diagonal: %.4f\n", m.BoundingBoxDiagonal())

		b, err := sc.Binding(name)
		if err != nil {
			fmt.Println("    Binding: none")
			continue
		}
		fmt.Printf("    Binding: %d influences %v\n", len(b.Influences), b.Influences)

		// Row-sum stats show whether the weights are normalized.
		w := b.Weights
		badRows, zeroRows := 0, 0
		maxUsed := 0
		for v := 0; v < w.VertexCount(); v++ {
			sum := 0.0
			used := 0
			for j := 0; j < w.InfluenceCount(); j++ {
				val := w.At(v, j)
				sum += val
				if val > 1e-6 {
					used++
				}
			}
			if used > maxUsed {
				maxUsed = used
			}
			if sum == 0 {
				zeroRows++
			} else if math.Abs(sum-1) > 1e-4 {
				badRows++
			}
		}
		fmt.Printf("    Weights: max %d influences/vertex, %d unnormalized rows, %d zero rows\n",
			maxUsed, badRows, zeroRows)
	}

	for i, j := range sc.Joints {
		pose := ""
		if j.PosePosition != nil || j.PoseRotation != nil {
			pose = " [posed]"
		}
		fmt.Printf("  Joint[%d] %q: parent=%d, bind=(%.3f, %.3f, %.3f)%s\n",
			i, j.Name, j.Parent, j.BindPosition.X, j.BindPosition.Y, j.BindPosition.Z, pose)
	}

	if *verbose {
		spew.Config.Indent = "  "
		spew.Dump(sc.Joints)
		for _, name := range names {
			if b, err := sc.Binding(name); err == nil {
				spew.Dump(b.Influences)
			}
		}
	}
}
