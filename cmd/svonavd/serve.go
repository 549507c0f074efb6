package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	_ "net/http/pprof"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/o0olele/svonav/internal/config"
	"github.com/o0olele/svonav/internal/httpapi"
	"github.com/o0olele/svonav/internal/navlog"
	"github.com/o0olele/svonav/svo"
)

func ServeCmd() *cobra.Command {
	var configFile string
	var octreePath string
	var useGzip bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "serve navigation queries over a baked octree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := navlog.Setup(navlog.Options{Level: cfg.Logging.Level, File: cfg.Logging.LogFile}); err != nil {
				return err
			}
			defer navlog.Sync()

			f, err := os.Open(octreePath)
			if err != nil {
				return fmt.Errorf("opening octree: %w", err)
			}
			octree, err := svo.Load(f, useGzip)
			f.Close()
			if err != nil {
				return err
			}

			server := httpapi.NewServer(octree, cfg.Smoothing, time.Now().UnixNano())
			if cfg.HTTP.EnablePprof {
				// pprof registers on http.DefaultServeMux via its import;
				// expose it on localhost:6060, apart from the API listener.
				go func() {
					navlog.Info("pprof listening", zap.String("addr", "localhost:6060"))
					_ = http.ListenAndServe("localhost:6060", nil)
				}()
			}
			navlog.Info("serving queries", zap.String("addr", cfg.HTTP.Addr))
			return http.ListenAndServe(cfg.HTTP.Addr, server.Handler())
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	c.Flags().StringVar(&octreePath, "octree", "nav.svo", "baked octree file")
	c.Flags().BoolVar(&useGzip, "gzip", true, "octree file was written gzipped")
	return c
}
