// Package geometry holds the collision-input primitives (triangles, convex
// blockers) and bounding-volume helpers fed into the tile generator.
package geometry

import "github.com/o0olele/svonav/math32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math32.Vector3 `json:"min"`
	Max math32.Vector3 `json:"max"`
}

func (aabb AABB) Contains(point math32.Vector3) bool {
	return point.X >= aabb.Min.X && point.X <= aabb.Max.X &&
		point.Y >= aabb.Min.Y && point.Y <= aabb.Max.Y &&
		point.Z >= aabb.Min.Z && point.Z <= aabb.Max.Z
}

func (aabb AABB) Center() math32.Vector3 {
	return math32.Vector3{
		X: (aabb.Min.X + aabb.Max.X) / 2,
		Y: (aabb.Min.Y + aabb.Max.Y) / 2,
		Z: (aabb.Min.Z + aabb.Max.Z) / 2,
	}
}

func (aabb AABB) Size() math32.Vector3 {
	return aabb.Max.Sub(aabb.Min)
}

func (aabb AABB) Intersects(other AABB) bool {
	return aabb.Min.X <= other.Max.X && aabb.Max.X >= other.Min.X &&
		aabb.Min.Y <= other.Max.Y && aabb.Max.Y >= other.Min.Y &&
		aabb.Min.Z <= other.Max.Z && aabb.Max.Z >= other.Min.Z
}

// IsEmpty reports whether the box has zero or negative volume.
func (aabb AABB) IsEmpty() bool {
	return aabb.Min.X >= aabb.Max.X || aabb.Min.Y >= aabb.Max.Y || aabb.Min.Z >= aabb.Max.Z
}

// Expand returns the box grown by amount on every face.
func (aabb AABB) Expand(amount float32) AABB {
	d := math32.Vector3{X: amount, Y: amount, Z: amount}
	return AABB{Min: aabb.Min.Sub(d), Max: aabb.Max.Add(d)}
}

// ExpandNonUniform grows XY faces by radius and the Z faces by halfHeight.
// The generator's gather bounds do not use it: Task.gatherBounds pads every
// face uniformly by max(radius, halfHeight).
func (aabb AABB) ExpandNonUniform(radius, halfHeight float32) AABB {
	return AABB{
		Min: math32.Vector3{X: aabb.Min.X - radius, Y: aabb.Min.Y - radius, Z: aabb.Min.Z - halfHeight},
		Max: math32.Vector3{X: aabb.Max.X + radius, Y: aabb.Max.Y + radius, Z: aabb.Max.Z + halfHeight},
	}
}

// Union returns the smallest box containing both aabb and other.
func (aabb AABB) Union(other AABB) AABB {
	return AABB{Min: aabb.Min.Min(other.Min), Max: aabb.Max.Max(other.Max)}
}
