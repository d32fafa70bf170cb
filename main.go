/*
main.go

Envault: layered environment resolution, secret fetching and validation
for monorepos.
*/
package main

import (
	"github.com/stackphase/envault/cmd"
	"github.com/stackphase/envault/pkg/logger"
	"github.com/stackphase/envault/pkg/telemetry"
)

func main() {
	logger.InitFallback()
	if err := telemetry.Init("envault"); err != nil {
		logger.L().Warn("Telemetry init failed: " + err.Error())
	}

	cmd.Execute()
}
