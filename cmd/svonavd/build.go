package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/o0olele/svonav/generator"
	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/internal/config"
	"github.com/o0olele/svonav/internal/navlog"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// geometryFile is the JSON wire format the build command consumes: the same
// triangle/blocker shapes the generator's gather interface uses (spec.md
// §6's geometry input streams, baked to a file by the host exporter).
type geometryFile struct {
	Triangles []geometry.Triangle      `json:"triangles"`
	Blockers  []geometry.ConvexBlocker `json:"blockers"`
}

func BuildCmd() *cobra.Command {
	var configFile string
	var geometryPath string
	var outputPath string
	var useGzip bool
	var boost bool

	c := &cobra.Command{
		Use:   "build",
		Short: "voxelize collision geometry into an octree file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := navlog.Setup(navlog.Options{Level: cfg.Logging.Level, File: cfg.Logging.LogFile}); err != nil {
				return err
			}
			defer navlog.Sync()

			data, err := os.ReadFile(geometryPath)
			if err != nil {
				return fmt.Errorf("reading geometry: %w", err)
			}
			var geo geometryFile
			if err := json.Unmarshal(data, &geo); err != nil {
				return fmt.Errorf("parsing geometry: %w", err)
			}
			gatherer := &generator.StaticGeometry{Triangles: geo.Triangles, Blockers: geo.Blockers}
			navlog.Info("geometry loaded",
				zap.Int("triangles", len(geo.Triangles)),
				zap.Int("blockers", len(geo.Blockers)))

			octree := svo.NewOctree(cfg.Octree)
			editable := svo.NewEditableOctree(octree)
			editable.OnWarning = func(msg string) { navlog.Warn(msg) }

			sched := generator.NewScheduler(cfg.Octree, cfg.Agent, gatherer, cfg.Scheduler.ToGenerator())
			sched.SetBoost(boost)
			sched.OnTileInstalled = func(coord math32.Vector3i) {
				navlog.Debug("tile installed", navlog.Tile(coord))
			}

			bounds := gatherer.Bounds().Expand(math32.Max(cfg.Agent.Radius, cfg.Agent.HalfHeight))
			coords := tileCoordsInBounds(octree, bounds)
			sched.AddDirtyTiles(coords, bounds.Center())
			navlog.Info("generation started", zap.Int("tiles", len(coords)))

			for !sched.Tick(editable) {
				time.Sleep(time.Millisecond)
			}

			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer out.Close()
			if err := octree.Save(out, useGzip); err != nil {
				return err
			}
			navlog.Info("octree saved", zap.String("path", outputPath))
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	c.Flags().StringVar(&geometryPath, "geometry", "geometry.json", "collision geometry file")
	c.Flags().StringVar(&outputPath, "out", "nav.svo", "output octree file")
	c.Flags().BoolVar(&useGzip, "gzip", true, "gzip the octree payload")
	c.Flags().BoolVar(&boost, "boost", true, "boost generation (offline build has no frame budget)")
	return c
}

// tileCoordsInBounds enumerates every tile coord whose cube overlaps bounds.
func tileCoordsInBounds(o *svo.Octree, bounds geometry.AABB) []math32.Vector3i {
	min := o.TileCoordAtLocation(bounds.Min)
	max := o.TileCoordAtLocation(bounds.Max)
	var out []math32.Vector3i
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				out = append(out, math32.Vector3i{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}
