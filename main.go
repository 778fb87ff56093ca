/*
Opens a window and draws the testbed scene with the
engine until the window is closed or Escape is pressed
*/
package main

import (
	"flag"
	"os"

	"github.com/spaghettifunk/chronos/engine"
	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/testbed"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogError("failed to load configuration: %s", err)
		return 1
	}

	e, err := engine.New(testbed.NewTestGame(), config)
	if err != nil {
		core.LogError(err.Error())
		return 1
	}
	// Shutdown also cleans up after a partial Initialize.
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("shutdown failed: %s", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize engine: %s", err)
		return 1
	}

	if err := e.Run(); err != nil {
		core.LogError("engine stopped: %s", err)
		return 1
	}
	return 0
}
