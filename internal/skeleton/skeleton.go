// Package skeleton evaluates linear-blend skinning for scene meshes so the
// transfer engine can match against deformed geometry instead of the rest
// pose.
package skeleton

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/mathutil"
	"robust-weight-transfer/internal/scene"
)

// BuildWorldMatrices computes the world transform per joint. With pose set,
// joints with a pose transform use it; otherwise the bind transform. Joints
// are ordered parent-before-child, so one forward pass suffices.
func BuildWorldMatrices(joints []scene.Joint, pose bool) []mathutil.Mat4 {
	worlds := make([]mathutil.Mat4, len(joints))
	for i, j := range joints {
		position := j.BindPosition
		rotation := j.BindRotation
		if pose {
			if j.PosePosition != nil {
				position = *j.PosePosition
			}
			if j.PoseRotation != nil {
				rotation = *j.PoseRotation
			}
		}

		q := mathutil.QuatFromEuler(rotation.X, rotation.Y, rotation.Z)
		local := mathutil.FromMat3Translation(q.Mat3(), position)

		if j.Parent >= 0 && j.Parent < i {
			worlds[i] = mathutil.Mat4Mul(worlds[j.Parent], local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}

// SkinningMatrices returns the per-joint matrix that carries a bind-pose
// point to its posed position: poseWorld × bindWorld⁻¹.
func SkinningMatrices(joints []scene.Joint) []mathutil.Mat4 {
	binds := BuildWorldMatrices(joints, false)
	poses := BuildWorldMatrices(joints, true)
	mats := make([]mathutil.Mat4, len(joints))
	for i := range joints {
		mats[i] = mathutil.Mat4Mul(poses[i], binds[i].InverseRigid())
	}
	return mats
}

// DeformedMeshData returns vertex positions and normals of a mesh evaluated
// at the current joint pose via linear-blend skinning. Vertices with an
// all-zero weight row keep their rest position.
func DeformedMeshData(s *scene.Scene, name string) ([]r3.Vec, []r3.Vec, error) {
	positions, normals, err := s.MeshData(name)
	if err != nil {
		return nil, nil, err
	}
	binding, err := s.Binding(name)
	if err != nil {
		return nil, nil, err
	}

	jointIdx := make([]int, len(binding.Influences))
	for i, inf := range binding.Influences {
		idx := s.JointIndex(inf)
		if idx < 0 {
			return nil, nil, fmt.Errorf("skeleton: binding %s: %w: %s", name, scene.ErrJointNotFound, inf)
		}
		jointIdx[i] = idx
	}

	mats := SkinningMatrices(s.Joints)

	// Skip the blend entirely when every skinning matrix is identity.
	allIdentity := true
	for _, m := range mats {
		if !m.IsIdentity() {
			allIdentity = false
			break
		}
	}
	if allIdentity {
		return positions, normals, nil
	}

	outPos := make([]r3.Vec, len(positions))
	outNrm := make([]r3.Vec, len(positions))
	for vi := range positions {
		row := binding.Weights.Row(vi)
		var p, n r3.Vec
		var total float64
		for ii, w := range row {
			if w == 0 {
				continue
			}
			m := mats[jointIdx[ii]]
			p = r3.Add(p, r3.Scale(w, m.MulPoint(positions[vi])))
			n = r3.Add(n, r3.Scale(w, m.MulDir(normals[vi])))
			total += w
		}
		if total == 0 {
			outPos[vi] = positions[vi]
			outNrm[vi] = normals[vi]
			continue
		}
		outPos[vi] = r3.Scale(1/total, p)
		l := r3.Norm(n)
		if l > 1e-12 {
			outNrm[vi] = r3.Scale(1/l, n)
		} else {
			outNrm[vi] = normals[vi]
		}
	}
	return outPos, outNrm, nil
}
