package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
	"scenegraph/scene"
)

// ErrNoFaces is returned for an OBJ file without a single face.
var ErrNoFaces = errors.New("loader: obj has no faces")

// objCorner is one face corner as 0-based position / UV / normal indices,
// -1 when absent.
type objCorner struct{ v, vt, vn int }

type objObject struct {
	name    string
	matName string
	faces   [][3]objCorner // fan-triangulated
}

// LoadOBJ parses a Wavefront .obj file. A companion .mtl referenced through
// "mtllib" is loaded from the same directory.
func LoadOBJ(path string) (scene.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	root, err := ParseOBJ(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("obj %q: %w", path, err)
	}
	root.AsNode().SetName(filepath.Base(path))
	return root, nil
}

// ParseOBJ builds a group with one geometry per object or group statement.
// Material libraries and textures are resolved relative to dir.
func ParseOBJ(r io.Reader, dir string) (scene.Node, error) {
	var (
		positions []mgl32.Vec3
		normals   []mgl32.Vec3
		uvs       []mgl32.Vec2
		objects   []objObject
	)
	materials := map[string]*gpu.StateSet{}
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})

		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], v[1]})

		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name, matName: cur.matName}

		case "usemtl":
			if len(fields) > 1 {
				cur.matName = fields[1]
			}

		case "mtllib":
			for _, lib := range fields[1:] {
				loaded, err := loadMTL(filepath.Join(dir, lib), dir)
				if err != nil {
					logger.Log.Warn("obj: material library unreadable", zap.String("mtllib", lib), zap.Error(err))
					continue
				}
				for k, v := range loaded {
					materials[k] = v
				}
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			corners := make([]objCorner, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				c, err := parseCorner(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				corners = append(corners, c)
			}
			// fan: 0-1-2, 0-2-3, ...
			for i := 1; i+1 < len(corners); i++ {
				cur.faces = append(cur.faces, [3]objCorner{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, ErrNoFaces
	}

	root := scene.NewNode()
	for _, obj := range objects {
		g := buildOBJGeometry(obj, positions, normals, uvs)
		if ss, ok := materials[obj.matName]; ok {
			g.SetStateSet(ss)
		}
		root.AddChild(g)
	}
	return root, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn". OBJ indices are
// 1-based; negative ones count back from the end of the pool read so far.
func parseCorner(tok string, nv, nvt, nvn int) (objCorner, error) {
	parts := strings.Split(tok, "/")
	c := objCorner{-1, -1, -1}
	dst := [3]*int{&c.v, &c.vt, &c.vn}
	pools := [3]int{nv, nvt, nvn}
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == "" {
			continue
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return c, fmt.Errorf("face index %q: %w", tok, err)
		}
		switch {
		case n > 0:
			n--
		case n < 0:
			n += pools[i]
		default:
			return c, fmt.Errorf("face index %q: zero index", tok)
		}
		if n < 0 || n >= pools[i] {
			return c, fmt.Errorf("face index %q out of range", tok)
		}
		*dst[i] = n
	}
	if c.v < 0 {
		return c, fmt.Errorf("face corner %q has no position", tok)
	}
	return c, nil
}

// buildOBJGeometry deduplicates corners into indexed vertex arrays.
func buildOBJGeometry(obj objObject, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) *scene.Geometry {
	index := map[objCorner]uint32{}
	var (
		pos, nrm, tex []float32
		indices       []uint32
	)
	hasNormals, hasUVs := true, true
	for _, face := range obj.faces {
		for _, c := range face {
			if c.vn < 0 {
				hasNormals = false
			}
			if c.vt < 0 {
				hasUVs = false
			}
		}
	}

	for _, face := range obj.faces {
		for _, c := range face {
			if idx, ok := index[c]; ok {
				indices = append(indices, idx)
				continue
			}
			idx := uint32(len(pos) / 3)
			p := positions[c.v]
			pos = append(pos, p[0], p[1], p[2])
			if hasNormals {
				n := normals[c.vn]
				nrm = append(nrm, n[0], n[1], n[2])
			}
			if hasUVs {
				t := uvs[c.vt]
				tex = append(tex, t[0], t[1])
			}
			index[c] = idx
			indices = append(indices, idx)
		}
	}
	if !hasNormals {
		nrm = generateNormals(pos, indices)
	}

	g := scene.NewGeometry()
	g.SetName(obj.name)
	g.SetVertexAttribArray(scene.VertexAttribute, gpu.NewFloatArray(pos, 3))
	g.SetVertexAttribArray(scene.NormalAttribute, gpu.NewFloatArray(nrm, 3))
	if hasUVs {
		g.SetVertexAttribArray(scene.TexCoord0Attribute, gpu.NewFloatArray(tex, 2))
	}
	g.AddPrimitiveSet(gpu.NewDrawElements(gpu.Triangles, gpu.NewUint32IndexArray(indices)))
	return g
}

// generateNormals computes area-weighted vertex normals.
func generateNormals(pos []float32, indices []uint32) []float32 {
	at := func(i uint32) mgl32.Vec3 { return mgl32.Vec3{pos[3*i], pos[3*i+1], pos[3*i+2]} }
	accum := make([]mgl32.Vec3, len(pos)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := at(i0)
		n := at(i1).Sub(v0).Cross(at(i2).Sub(v0))
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	out := make([]float32, 0, len(pos))
	for _, n := range accum {
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		out = append(out, n[0], n[1], n[2])
	}
	return out
}

// ── MTL ──────────────────────────────────────────────────────────────────────

type mtlMaterial struct {
	diffuse [3]float32
	alpha   float32
	texture string
}

// loadMTL reads a material library into state sets carrying BaseColor,
// an optional diffuse texture and, for dissolved materials, the
// transparent bin.
func loadMTL(path, dir string) (map[string]*gpu.StateSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mats, err := parseMTL(f)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*gpu.StateSet, len(mats))
	for name, m := range mats {
		ss := gpu.NewStateSet()
		ss.AddUniform(gpu.NewUniformFloats(BaseColorUniform, m.diffuse[0], m.diffuse[1], m.diffuse[2], m.alpha))
		if m.alpha < 1 {
			ss.SetRenderBin(gpu.TransparentBin)
		}
		if m.texture != "" {
			if tex, err := loadTextureFile(filepath.Join(dir, m.texture)); err != nil {
				logger.Log.Warn("obj: diffuse map unreadable", zap.String("material", name), zap.Error(err))
			} else {
				ss.SetTexture(0, tex)
				ss.AddUniform(gpu.NewUniformInt(Texture0EnabledUniform, 1))
			}
		}
		out[name] = ss
	}
	return out, nil
}

func parseMTL(r io.Reader) (map[string]*mtlMaterial, error) {
	mats := map[string]*mtlMaterial{}
	var cur *mtlMaterial

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "newmtl":
			if len(fields) > 1 {
				cur = &mtlMaterial{diffuse: [3]float32{1, 1, 1}, alpha: 1}
				mats[fields[1]] = cur
			}
		case "Kd":
			if cur != nil {
				if v, err := parseFloats(fields[1:], 3); err == nil {
					cur.diffuse = [3]float32{v[0], v[1], v[2]}
				}
			}
		case "d":
			if cur != nil {
				if v, err := parseFloats(fields[1:], 1); err == nil {
					cur.alpha = v[0]
				}
			}
		case "Tr":
			if cur != nil {
				if v, err := parseFloats(fields[1:], 1); err == nil {
					cur.alpha = 1 - v[0]
				}
			}
		case "map_Kd":
			if cur != nil && len(fields) > 1 {
				cur.texture = fields[len(fields)-1]
			}
		}
	}
	return mats, scanner.Err()
}

func loadTextureFile(path string) (*gpu.Texture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(raw)
	if err != nil {
		return nil, err
	}
	return gpu.NewTexture(filepath.Base(path), img), nil
}
