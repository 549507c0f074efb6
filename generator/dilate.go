package generator

// Dilate grows the blocked set by radiusVoxels in X/Y and heightVoxels in Z
// around every already-blocked voxel, so an agent centered on any remaining
// open voxel can never overlap geometry (spec.md §4.6 step 2). XY uses the
// agent radius and Z uses the agent half-height — the spec's §9 Open
// Question flags a source code path that swaps these; this does not
// replicate that swap. Gather bounds (Task.gatherBounds) are padded
// differently: every axis by the larger of the two.
//
// This walks the 3D kernel directly per blocked voxel rather than the
// spec's "precompute a set of Morton offsets, OR them into the blocked
// voxel's Morton code" construction — same dilated set, since ORing a
// Morton-space offset against a blocked code is just another way to name
// the same integer coordinate offset; the coordinate form is simpler to get
// right and this isn't a hot path run more than once per tile build.
func (g *Grid) Dilate(radiusVoxels, heightVoxels int) {
	if radiusVoxels <= 0 && heightVoxels <= 0 {
		return
	}
	before := &Grid{Dim: g.Dim, Origin: g.Origin, VoxelSize: g.VoxelSize, bits: g.bits.Clone()}

	for z := 0; z < g.Dim; z++ {
		for y := 0; y < g.Dim; y++ {
			for x := 0; x < g.Dim; x++ {
				if before.Blocked(x, y, z) {
					g.dilateAround(x, y, z, radiusVoxels, heightVoxels)
				}
			}
		}
	}
}

func (g *Grid) dilateAround(cx, cy, cz, radiusVoxels, heightVoxels int) {
	r2 := radiusVoxels * radiusVoxels
	for dz := -heightVoxels; dz <= heightVoxels; dz++ {
		z := cz + dz
		if z < 0 || z >= g.Dim {
			continue
		}
		for dy := -radiusVoxels; dy <= radiusVoxels; dy++ {
			y := cy + dy
			if y < 0 || y >= g.Dim {
				continue
			}
			for dx := -radiusVoxels; dx <= radiusVoxels; dx++ {
				if dx*dx+dy*dy > r2 {
					continue
				}
				x := cx + dx
				if x < 0 || x >= g.Dim {
					continue
				}
				g.Set(x, y, z)
			}
		}
	}
}
