package main

import (
	"context"
	"log/slog"
	"os"
	"shiftbooker/cmd/shiftbooker/commands"
	"shiftbooker/lib/serviceutil"
	"shiftbooker/lib/telemetry"
	"time"
)

func main() {
	telemetry.InitSlog(false)

	ctx := serviceutil.SignalContext()
	err := telemetry.SetupFromEnv(ctx, "shiftbooker")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if shutdownErr := telemetry.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		os.Exit(1)
	}
}
