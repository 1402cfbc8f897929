package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"shiftbooker/internal/booker"
	"shiftbooker/lib/restyutil"
	"shiftbooker/lib/serviceutil"
	"shiftbooker/lib/telemetry"
	"shiftbooker/lib/timezone"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.yaml", "The config file listing credentials and the shifts to book.")
	flags.BoolVar(&verbose, "verbose", false, "Log at debug level.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every http request and response to files in this directory.")
}

var rootCmd = &cobra.Command{
	Use:   "shiftbooker [--config <path/to/config.yaml>]",
	Short: "shiftbooker signs up for the volunteer shifts listed in a config.",
	Args:  cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
		telemetry.WithRunId()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cfg, output := setup()

		summary, err := booker.Run(cmd.Context(), cfg, booker.RunOptions{
			Now:              timezone.Now(),
			InstrumentOutput: output,
		})
		if err != nil {
			serviceutil.Fatal("failed to book shifts", err)
		}
		fmt.Println(summary)
	},
}

// setup reads the config and applies the settings every command shares.
func setup() (booker.Config, restyutil.InstrumentOutput) {
	cfg, err := booker.LoadConfig(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	err = timezone.SetLocation(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}
	slog.Debug("loaded config", "path", configPath, "username", cfg.Username, "weekdays", len(cfg.Time))

	if dumpHttp == "" {
		return cfg, nil
	}
	output, err := restyutil.NewFilesystemOutput(dumpHttp)
	if err != nil {
		serviceutil.Fatal("failed to create http dump directory", err)
	}
	return cfg, output
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}
