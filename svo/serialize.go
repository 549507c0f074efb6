package svo

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/o0olele/svonav/math32"
)

// FileMagic identifies a serialized octree file.
const FileMagic uint32 = 0x53564f31 // "SVO1"

// FileVersion enumerates the on-disk formats this package can read.
// Historical versions are migrated up to FileVersionCurrent on load
// (spec.md §6's "custom-version enum"; grounded on the teacher's
// builder/serialize.go FileHeader, extended with a migration table since
// the teacher only ever wrote one version).
type FileVersion uint32

const (
	// FileVersionLegacyNeighborPairs stored each neighbor as an explicit
	// (tileID, nodeID) pair rather than the compact same-tile/direction
	// form; migration recomputes the compact form from the pair.
	FileVersionLegacyNeighborPairs FileVersion = 1
	// FileVersionLegacyStateFlags stored non-leaf occupancy as two
	// independent bool flags (open/blocked) instead of the NodeState enum;
	// migration maps (open=false,blocked=false)->PartiallyBlocked,
	// (true,false)->Open, (false,true)->Blocked.
	FileVersionLegacyStateFlags FileVersion = 2
	// FileVersionCurrent is the format this package writes.
	FileVersionCurrent FileVersion = 3
)

// FileHeader is the fixed-size prefix of a serialized octree file.
type FileHeader struct {
	Magic   uint32
	Version uint32
}

// wireNode is the gob-serializable mirror of Node. Fields are exported so
// gob can see them; conversion to/from the runtime Node happens in
// Tile.toSnapshot and fromSnapshot.
type wireNode struct {
	Self      uint64
	Neighbor  [6]uint64
	LeafMask  uint64
	NState    uint8
	ChildBase uint64
	Active    bool

	// Legacy fields, populated only when decoding FileVersionLegacyNeighborPairs
	// or FileVersionLegacyStateFlags; empty (zero value) otherwise.
	LegacyNeighborTileID [6]uint32
	LegacyNeighborNodeID [6]uint32
	LegacyOpenFlag       bool
	LegacyBlockedFlag    bool
}

// layerSnapshot is the gob-serializable mirror of layerInfo (whose own
// fields are unexported and so invisible to gob).
type layerSnapshot struct {
	Start     int
	NumActive int
	MaxSlots  int
}

// tileSnapshot is the gob-serializable mirror of Tile.
type tileSnapshot struct {
	Coord     math32.Vector3i
	ID        uint32
	TileLayer int
	Layers    []layerSnapshot
	Pool      []wireNode
}

func (t *Tile) toSnapshot() tileSnapshot {
	pool := make([]wireNode, len(t.pool))
	for i, n := range t.pool {
		pool[i] = wireNode{
			Self:      uint64(n.self),
			LeafMask:  n.leafMask,
			NState:    uint8(n.nstate),
			ChildBase: uint64(n.childBase),
			Active:    n.active,
		}
		for d := 0; d < 6; d++ {
			pool[i].Neighbor[d] = uint64(n.neighbor[d])
		}
	}
	layers := make([]layerSnapshot, len(t.layers))
	for i, li := range t.layers {
		layers[i] = layerSnapshot{Start: li.start, NumActive: li.numActive, MaxSlots: li.maxSlots}
	}
	return tileSnapshot{
		Coord:     t.Coord,
		ID:        t.ID,
		TileLayer: t.TileLayer,
		Layers:    layers,
		Pool:      pool,
	}
}

// fromSnapshot rebuilds a Tile from a decoded snapshot, migrating legacy
// wire fields up to the current in-memory representation first.
func fromSnapshot(s tileSnapshot, version FileVersion) *Tile {
	layers := make([]layerInfo, len(s.Layers))
	for i, ls := range s.Layers {
		layers[i] = layerInfo{start: ls.Start, numActive: ls.NumActive, maxSlots: ls.MaxSlots}
	}
	t := &Tile{Coord: s.Coord, ID: s.ID, TileLayer: s.TileLayer, layers: layers}
	t.pool = make([]Node, len(s.Pool))
	for i, wn := range s.Pool {
		n := &t.pool[i]
		n.self = NodeLink(wn.Self)
		n.leafMask = wn.LeafMask
		n.childBase = NodeLink(wn.ChildBase)
		n.active = wn.Active

		switch {
		case version <= FileVersionLegacyNeighborPairs:
			for d := 0; d < 6; d++ {
				if wn.LegacyNeighborTileID[d] == InvalidTileID {
					n.neighbor[d] = InvalidLink
					continue
				}
				n.neighbor[d] = MakeLink(wn.LegacyNeighborTileID[d], n.self.Layer(), wn.LegacyNeighborNodeID[d], NoVoxel, 0)
			}
		default:
			for d := 0; d < 6; d++ {
				n.neighbor[d] = NodeLink(wn.Neighbor[d])
			}
		}

		if version <= FileVersionLegacyStateFlags {
			switch {
			case wn.LegacyOpenFlag:
				n.nstate = StateOpen
			case wn.LegacyBlockedFlag:
				n.nstate = StateBlocked
			default:
				n.nstate = StatePartiallyBlocked
			}
		} else {
			n.nstate = NodeState(wn.NState)
		}
	}
	return t
}

// octreeSnapshot is the top-level gob payload.
type octreeSnapshot struct {
	Config Config
	Tiles  []tileSnapshot
}

// Save writes o to w: a FileHeader, then (optionally gzipped) gob-encoded
// tile data. Follows the teacher's builder/serialize.go shape (magic +
// version header, toggleable gzip) generalized to the octree's own tile
// pool instead of the teacher's flat CompactNode/CompactEdge arrays.
func (o *Octree) Save(w io.Writer, useGzip bool) error {
	snap := octreeSnapshot{Config: o.Config}
	for _, t := range o.tiles {
		snap.Tiles = append(snap.Tiles, t.toSnapshot())
	}

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(snap); err != nil {
		return fmt.Errorf("svo: encode: %w", err)
	}

	payload := body.Bytes()
	if useGzip {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("svo: gzip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("svo: gzip close: %w", err)
		}
		payload = gz.Bytes()
	}

	header := FileHeader{Magic: FileMagic, Version: uint32(FileVersionCurrent)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("svo: write header: %w", err)
	}
	_, err := w.Write(payload)
	return err
}

// Load reads an octree previously written by Save, migrating older
// FileVersions forward. useGzip must match how the file was written (the
// header alone doesn't record it, matching the teacher's format).
func Load(r io.Reader, useGzip bool) (*Octree, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("svo: read header: %w", err)
	}
	if header.Magic != FileMagic {
		return nil, fmt.Errorf("svo: bad magic %#x", header.Magic)
	}
	version := FileVersion(header.Version)
	if version > FileVersionCurrent {
		return nil, fmt.Errorf("svo: unsupported version %d (newest known %d)", version, FileVersionCurrent)
	}

	payload := r
	if useGzip {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("svo: gzip reader: %w", err)
		}
		defer zr.Close()
		payload = zr
	}

	var snap octreeSnapshot
	if err := gob.NewDecoder(payload).Decode(&snap); err != nil {
		return nil, fmt.Errorf("svo: decode: %w", err)
	}

	o := NewOctree(snap.Config)
	for _, ts := range snap.Tiles {
		t := fromSnapshot(ts, version)
		o.tiles[t.ID] = t
	}
	return o, nil
}

// Compatible reports whether o and other were built with the same seed
// location, voxel size and tile layer index — the compatibility rule
// spec.md §6 requires before tiles can be exchanged between octrees.
func (o *Octree) Compatible(other *Octree) bool {
	return o.Config.Origin == other.Config.Origin &&
		o.Config.VoxelSize == other.Config.VoxelSize &&
		o.Config.TileLayer == other.Config.TileLayer
}
