// rigserve runs the hero scene in real time and serves it over HTTP and
// websocket.
//
// Environment: RIG_ADDR, RIG_SCENE, RIG_SEED, RIG_HZ, RIG_LOG_LEVEL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rigmotion/internal/config"
	"github.com/teslashibe/go-rigmotion/internal/log"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
	"github.com/teslashibe/go-rigmotion/pkg/web"
)

var (
	addr  = flag.String("addr", config.Addr(), "listen address")
	debug = flag.Bool("debug", false, "debug logging and request logs")
)

func main() {
	flag.Parse()

	opts := log.OptionsFromEnv()
	if *debug {
		opts.Level = "debug"
	}
	log.Init(opts)

	sc, err := config.FromEnv()
	if err != nil {
		log.Error("load scene", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scene.New(sc)
	srv := web.NewServer(web.Config{Addr: *addr, Debug: *debug}, s)
	s.SetSink(srv.Frames())

	go s.Run(ctx)

	log.Info("rigserve ready",
		"api", "http://localhost"+*addr+"/api/status",
		"frames", "ws://localhost"+*addr+"/ws/frames",
		"seed", sc.Seed)

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
