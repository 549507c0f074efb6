package math32

// Vector3i is a signed integer coordinate triple, used to address octree
// cells at a given resolution (tile coords, node coords, leaf voxel coords).
type Vector3i struct {
	X int32
	Y int32
	Z int32
}

func (v Vector3i) Add(other Vector3i) Vector3i {
	return Vector3i{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vector3i) Sub(other Vector3i) Vector3i {
	return Vector3i{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vector3i) Max(other Vector3i) Vector3i {
	return Vector3i{Max(v.X, other.X), Max(v.Y, other.Y), Max(v.Z, other.Z)}
}

func (v Vector3i) Min(other Vector3i) Vector3i {
	return Vector3i{Min(v.X, other.X), Min(v.Y, other.Y), Min(v.Z, other.Z)}
}

func (v Vector3i) Equal(other Vector3i) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ManhattanDistance is the L1 distance, used by the A* heuristic because it
// stays stable across voxel-unit coordinates regardless of node size.
func (v Vector3i) ManhattanDistance(other Vector3i) int64 {
	dx := int64(v.X) - int64(other.X)
	dy := int64(v.Y) - int64(other.Y)
	dz := int64(v.Z) - int64(other.Z)
	return Abs64(dx) + Abs64(dy) + Abs64(dz)
}

// InRange reports whether every axis of v lies within [min,max] inclusive.
func (v Vector3i) InRange(min, max Vector3i) bool {
	return v.X >= min.X && v.X <= max.X &&
		v.Y >= min.Y && v.Y <= max.Y &&
		v.Z >= min.Z && v.Z <= max.Z
}
