package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// Joint is a named influence with a bind transform and an optional current
// pose. Rotations are Euler XYZ in radians; Parent is -1 for roots and must
// always be a lower index (parents precede children).
type Joint struct {
	Name         string
	Parent       int
	BindPosition r3.Vec
	BindRotation r3.Vec
	PosePosition *r3.Vec
	PoseRotation *r3.Vec
}

// Binding links a mesh to an ordered, name-unique influence set and its
// per-vertex weight matrix.
type Binding struct {
	MeshName   string
	Influences []string
	Weights    *WeightMatrix
}

// InfluenceIndex returns the column index of a named influence, or -1.
func (b *Binding) InfluenceIndex(name string) int {
	for i, inf := range b.Influences {
		if inf == name {
			return i
		}
	}
	return -1
}

// Scene is the file-backed host environment: meshes, joints and skin
// bindings. It implements the mesh-data and weight-data provider contracts
// the transfer engine consumes.
type Scene struct {
	Joints []Joint

	meshes   map[string]*Mesh
	order    []string
	bindings map[string]*Binding
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		meshes:   make(map[string]*Mesh),
		bindings: make(map[string]*Binding),
	}
}

// AddMesh validates and registers a mesh. Re-adding a name replaces it.
func (s *Scene) AddMesh(m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, ok := s.meshes[m.Name]; !ok {
		s.order = append(s.order, m.Name)
	}
	s.meshes[m.Name] = m
	return nil
}

// Mesh returns the named mesh.
func (s *Scene) Mesh(name string) (*Mesh, error) {
	m, ok := s.meshes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMeshNotFound, name)
	}
	return m, nil
}

// MeshNames returns mesh names in insertion order.
func (s *Scene) MeshNames() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// JointIndex returns the index of a named joint, or -1.
func (s *Scene) JointIndex(name string) int {
	for i, j := range s.Joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}

// MeshData returns copies of the rest-pose vertex positions and normals.
// Deformed-state queries go through the skeleton package, which layers LBS
// on top of this snapshot.
func (s *Scene) MeshData(name string) ([]r3.Vec, []r3.Vec, error) {
	m, err := s.Mesh(name)
	if err != nil {
		return nil, nil, err
	}
	positions := make([]r3.Vec, len(m.Positions))
	copy(positions, m.Positions)
	normals := make([]r3.Vec, len(m.Positions))
	copy(normals, m.VertexNormals())
	return positions, normals, nil
}

// Triangles returns the triangle index list of a mesh.
func (s *Scene) Triangles(name string) ([][3]int, error) {
	m, err := s.Mesh(name)
	if err != nil {
		return nil, err
	}
	return m.Triangles, nil
}

// Adjacency returns the per-vertex neighbor lists of a mesh.
func (s *Scene) Adjacency(name string) ([][]int, error) {
	m, err := s.Mesh(name)
	if err != nil {
		return nil, err
	}
	return m.Adjacency(), nil
}

// BoundingBoxDiagonal returns the bbox diagonal length of a mesh.
func (s *Scene) BoundingBoxDiagonal(name string) (float64, error) {
	m, err := s.Mesh(name)
	if err != nil {
		return 0, err
	}
	return m.BoundingBoxDiagonal(), nil
}

// Binding returns the skin binding of a mesh, or ErrNoBinding.
func (s *Scene) Binding(name string) (*Binding, error) {
	if _, err := s.Mesh(name); err != nil {
		return nil, err
	}
	b, ok := s.bindings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBinding, name)
	}
	return b, nil
}

// AllWeights returns a copy of the mesh's weight matrix and its influence set.
func (s *Scene) AllWeights(name string) (*WeightMatrix, []string, error) {
	b, err := s.Binding(name)
	if err != nil {
		return nil, nil, err
	}
	influences := make([]string, len(b.Influences))
	copy(influences, b.Influences)
	return b.Weights.Clone(), influences, nil
}

// GetOrCreateBinding returns the existing binding of a mesh, or creates an
// empty one against the given influence set. Every influence must name a
// scene joint.
func (s *Scene) GetOrCreateBinding(name string, influences []string) (*Binding, error) {
	m, err := s.Mesh(name)
	if err != nil {
		return nil, err
	}
	if b, ok := s.bindings[name]; ok {
		return b, nil
	}
	for _, inf := range influences {
		if s.JointIndex(inf) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrJointNotFound, inf)
		}
	}
	infs := make([]string, len(influences))
	copy(infs, influences)
	b := &Binding{
		MeshName:   name,
		Influences: infs,
		Weights:    NewWeightMatrix(len(m.Positions), len(infs)),
	}
	s.bindings[name] = b
	return b, nil
}

// SetAllWeights replaces the mesh's persisted weight matrix. The matrix is
// copied; when normalize is set, each row is renormalized after the write.
func (s *Scene) SetAllWeights(name string, w *WeightMatrix, normalize bool) error {
	b, err := s.Binding(name)
	if err != nil {
		return err
	}
	if err := s.checkWeightShape(name, b, w); err != nil {
		return err
	}
	b.Weights = w.Clone()
	if normalize {
		b.Weights.NormalizeRows()
	}
	return nil
}

// SetWeightsForVertices writes rows for a vertex subset. w must have one row
// per entry of indices.
func (s *Scene) SetWeightsForVertices(name string, indices []int, w *WeightMatrix, normalize bool) error {
	b, err := s.Binding(name)
	if err != nil {
		return err
	}
	if w.InfluenceCount() != len(b.Influences) {
		return fmt.Errorf("scene: weight matrix has %d influences, binding %s has %d",
			w.InfluenceCount(), name, len(b.Influences))
	}
	if w.VertexCount() != len(indices) {
		return fmt.Errorf("scene: weight matrix has %d rows for %d vertex indices",
			w.VertexCount(), len(indices))
	}
	for row, vi := range indices {
		if vi < 0 || vi >= b.Weights.VertexCount() {
			return &TopologyError{Mesh: name, Vertex: vi, Triangle: -1, Detail: "vertex index out of range"}
		}
		b.Weights.SetRow(vi, w.Row(row))
	}
	if normalize {
		b.Weights.NormalizeRows()
	}
	return nil
}

func (s *Scene) checkWeightShape(name string, b *Binding, w *WeightMatrix) error {
	m := s.meshes[name]
	if w.VertexCount() != len(m.Positions) {
		return fmt.Errorf("scene: weight matrix has %d rows, mesh %s has %d vertices",
			w.VertexCount(), name, len(m.Positions))
	}
	if w.InfluenceCount() != len(b.Influences) {
		return fmt.Errorf("scene: weight matrix has %d influences, binding %s has %d",
			w.InfluenceCount(), name, len(b.Influences))
	}
	return nil
}

// ---- JSON persistence ----

type meshSchema struct {
	Name      string       `json:"name"`
	Vertices  [][3]float64 `json:"vertices"`
	Normals   [][3]float64 `json:"normals,omitempty"`
	Triangles [][3]int     `json:"triangles"`
}

type jointSchema struct {
	Name         string      `json:"name"`
	Parent       int         `json:"parent"`
	BindPosition [3]float64  `json:"bind_position"`
	BindRotation [3]float64  `json:"bind_rotation"`
	PosePosition *[3]float64 `json:"pose_position,omitempty"`
	PoseRotation *[3]float64 `json:"pose_rotation,omitempty"`
}

type bindingSchema struct {
	Mesh       string    `json:"mesh"`
	Influences []string  `json:"influences"`
	Weights    []float64 `json:"weights"`
}

type sceneSchema struct {
	Meshes   []meshSchema    `json:"meshes"`
	Joints   []jointSchema   `json:"joints,omitempty"`
	Bindings []bindingSchema `json:"bindings,omitempty"`
}

// Load reads a scene JSON file.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open %s: %w", path, err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a scene from JSON.
func Decode(r io.Reader) (*Scene, error) {
	var schema sceneSchema
	if err := json.NewDecoder(r).Decode(&schema); err != nil {
		return nil, err
	}

	s := New()
	for i, js := range schema.Joints {
		if js.Parent >= i {
			return nil, fmt.Errorf("scene: joint %s: parent index %d does not precede joint %d", js.Name, js.Parent, i)
		}
		j := Joint{
			Name:         js.Name,
			Parent:       js.Parent,
			BindPosition: toVec(js.BindPosition),
			BindRotation: toVec(js.BindRotation),
		}
		if js.PosePosition != nil {
			v := toVec(*js.PosePosition)
			j.PosePosition = &v
		}
		if js.PoseRotation != nil {
			v := toVec(*js.PoseRotation)
			j.PoseRotation = &v
		}
		s.Joints = append(s.Joints, j)
	}

	for _, ms := range schema.Meshes {
		m := &Mesh{Name: ms.Name, Triangles: ms.Triangles}
		m.Positions = make([]r3.Vec, len(ms.Vertices))
		for i, v := range ms.Vertices {
			m.Positions[i] = toVec(v)
		}
		if len(ms.Normals) > 0 {
			m.Normals = make([]r3.Vec, len(ms.Normals))
			for i, n := range ms.Normals {
				m.Normals[i] = toVec(n)
			}
		}
		if err := s.AddMesh(m); err != nil {
			return nil, err
		}
	}

	for _, bs := range schema.Bindings {
		m, err := s.Mesh(bs.Mesh)
		if err != nil {
			return nil, err
		}
		want := len(m.Positions) * len(bs.Influences)
		if len(bs.Weights) != want {
			return nil, fmt.Errorf("scene: binding %s: %d weights, want %d (%d verts × %d influences)",
				bs.Mesh, len(bs.Weights), want, len(m.Positions), len(bs.Influences))
		}
		data := make([]float64, want)
		copy(data, bs.Weights)
		s.bindings[bs.Mesh] = &Binding{
			MeshName:   bs.Mesh,
			Influences: bs.Influences,
			Weights:    NewWeightMatrixFrom(len(m.Positions), len(bs.Influences), data),
		}
	}

	return s, nil
}

// Save writes the scene back to a JSON file.
func (s *Scene) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scene: create %s: %w", path, err)
	}
	defer f.Close()
	if err := s.Encode(f); err != nil {
		return fmt.Errorf("scene: write %s: %w", path, err)
	}
	return nil
}

// Encode serializes the scene as indented JSON.
func (s *Scene) Encode(w io.Writer) error {
	var schema sceneSchema
	for _, j := range s.Joints {
		js := jointSchema{
			Name:         j.Name,
			Parent:       j.Parent,
			BindPosition: fromVec(j.BindPosition),
			BindRotation: fromVec(j.BindRotation),
		}
		if j.PosePosition != nil {
			v := fromVec(*j.PosePosition)
			js.PosePosition = &v
		}
		if j.PoseRotation != nil {
			v := fromVec(*j.PoseRotation)
			js.PoseRotation = &v
		}
		schema.Joints = append(schema.Joints, js)
	}
	for _, name := range s.order {
		m := s.meshes[name]
		ms := meshSchema{Name: m.Name, Triangles: m.Triangles}
		ms.Vertices = make([][3]float64, len(m.Positions))
		for i, v := range m.Positions {
			ms.Vertices[i] = fromVec(v)
		}
		for _, n := range m.Normals {
			ms.Normals = append(ms.Normals, fromVec(n))
		}
		schema.Meshes = append(schema.Meshes, ms)
	}
	for _, name := range s.order {
		b, ok := s.bindings[name]
		if !ok {
			continue
		}
		weights := make([]float64, len(b.Weights.Raw()))
		copy(weights, b.Weights.Raw())
		schema.Bindings = append(schema.Bindings, bindingSchema{
			Mesh:       b.MeshName,
			Influences: b.Influences,
			Weights:    weights,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&schema)
}

func toVec(a [3]float64) r3.Vec   { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
func fromVec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
