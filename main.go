package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stereocap/internal/camera"
	"stereocap/internal/cli"
	"stereocap/internal/cvcam"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// OpenCV 実装を V4L2 と GStreamer の両方に登録する
	discovery := camera.NewLinuxDiscovery()
	factory := camera.NewFactory()
	cvcam.Register(factory, discovery)

	app := cli.App{
		Factory:   factory,
		Discovery: discovery,
		Encoder:   cvcam.NewEncoder(),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}

	code := app.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
