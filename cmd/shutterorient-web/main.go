package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/On-Jun9/ShutterOrient/internal/config"
	"github.com/On-Jun9/ShutterOrient/internal/web"
)

var (
	version = "dev" // set by ldflags during build
)

func main() {
	addr := flag.String("addr", "localhost:8080", "HTTP server address")
	cfgFile := flag.String("config", "", "config file path")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *cfgFile != "" {
		loaded, err := config.LoadFromFile(*cfgFile)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}

	server, err := web.NewServer(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create server")
	}
	defer server.Close()
	server.SetVersion(version)

	if err := server.Start(*addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
