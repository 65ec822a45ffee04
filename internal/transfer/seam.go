package transfer

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/scene"
)

// SeamResult reports what AverageSeamWeights did.
type SeamResult struct {
	SeamGroups       int
	VerticesAveraged int
}

type seamVertex struct {
	mesh    string
	index   int
	pos     r3.Vec
	binding *scene.Binding
}

// AverageSeamWeights groups vertices across the given meshes whose positions
// are within tolerance of each other and replaces each group's weight rows
// with their normalized mean, expressed per mesh through its own influence
// set (influences are unified by name). With includeInternal set, coincident
// vertices within a single mesh (UV-split seams) are grouped too; otherwise
// only vertices from different meshes form groups. Every mesh must carry a
// skin binding.
func (p *Pipeline) AverageSeamWeights(meshes []string, tolerance float64, includeInternal bool) (*SeamResult, error) {
	if len(meshes) < 1 {
		return nil, fmt.Errorf("transfer: seam averaging needs at least one mesh")
	}
	if len(meshes) < 2 && !includeInternal {
		return nil, fmt.Errorf("transfer: seam averaging across meshes needs at least two meshes")
	}

	var all []seamVertex
	for _, name := range meshes {
		positions, _, err := p.scene.MeshData(name)
		if err != nil {
			return nil, err
		}
		binding, err := p.scene.Binding(name)
		if err != nil {
			return nil, err
		}
		for i, pos := range positions {
			all = append(all, seamVertex{mesh: name, index: i, pos: pos, binding: binding})
		}
	}

	groups := findSeamGroups(all, tolerance, includeInternal)
	if len(groups) == 0 {
		return &SeamResult{}, nil
	}

	averaged := 0
	for _, group := range groups {
		// Unified influence set across the group, sorted for determinism.
		nameSet := make(map[string]struct{})
		for _, sv := range group {
			for _, inf := range sv.binding.Influences {
				nameSet[inf] = struct{}{}
			}
		}
		unified := make([]string, 0, len(nameSet))
		for inf := range nameSet {
			unified = append(unified, inf)
		}
		sort.Strings(unified)
		colOf := make(map[string]int, len(unified))
		for i, inf := range unified {
			colOf[inf] = i
		}

		// Accumulate rows in unified space.
		acc := make([]float64, len(unified))
		for _, sv := range group {
			row := sv.binding.Weights.Row(sv.index)
			for i, inf := range sv.binding.Influences {
				acc[colOf[inf]] += row[i]
			}
		}
		var total float64
		for i := range acc {
			acc[i] /= float64(len(group))
			total += acc[i]
		}
		if total > 0 {
			for i := range acc {
				acc[i] /= total
			}
		}

		// Scatter the mean back through each member's own influence set.
		for _, sv := range group {
			row := sv.binding.Weights.Row(sv.index)
			for i := range row {
				row[i] = 0
			}
			var sum float64
			for i, inf := range sv.binding.Influences {
				w := acc[colOf[inf]]
				if w > 1e-4 {
					row[i] = w
					sum += w
				}
			}
			if sum > 0 {
				inv := 1 / sum
				for i := range row {
					row[i] *= inv
				}
			}
			averaged++
		}
	}

	Logger().Debug("seam averaging complete",
		"meshes", len(meshes), "groups", len(groups), "vertices", averaged)
	return &SeamResult{SeamGroups: len(groups), VerticesAveraged: averaged}, nil
}

// findSeamGroups clusters coincident vertices with a uniform spatial hash
// grid; each cell is compared against its 27-cell neighborhood so groups
// straddling cell boundaries are not missed.
func findSeamGroups(all []seamVertex, tolerance float64, includeInternal bool) [][]seamVertex {
	cellSize := tolerance * 10
	if cellSize <= 0 {
		cellSize = 1e-9
	}

	type cellKey [3]int
	grid := make(map[cellKey][]int)
	keyFor := func(p r3.Vec) cellKey {
		return cellKey{
			int(math.Floor(p.X / cellSize)),
			int(math.Floor(p.Y / cellSize)),
			int(math.Floor(p.Z / cellSize)),
		}
	}
	for i, sv := range all {
		k := keyFor(sv.pos)
		grid[k] = append(grid[k], i)
	}

	processed := make([]bool, len(all))
	var groups [][]seamVertex

	for i, sv := range all {
		if processed[i] {
			continue
		}
		base := keyFor(sv.pos)
		var candidates []int
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					k := cellKey{base[0] + dx, base[1] + dy, base[2] + dz}
					candidates = append(candidates, grid[k]...)
				}
			}
		}

		group := []seamVertex{sv}
		processed[i] = true
		for _, j := range candidates {
			if processed[j] || j == i {
				continue
			}
			other := all[j]
			if !includeInternal && other.mesh == sv.mesh {
				continue
			}
			if r3.Norm(r3.Sub(sv.pos, other.pos)) <= tolerance {
				group = append(group, other)
				processed[j] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}
