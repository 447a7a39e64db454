// Package cli implements the zcomposite command tree.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"zcomposite/pkg/cache"
	"zcomposite/pkg/config"
)

// app carries the state shared across commands: the logger and the
// loaded configuration.
type app struct {
	logger  *log.Logger
	cfg     *config.Config
	cfgPath string
	verbose bool
}

// Execute builds the command tree and runs it until completion or
// context cancellation.
func Execute(ctx context.Context, version string) error {
	a := &app{
		logger: log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false}),
	}

	root := &cobra.Command{
		Use:   "zcomposite",
		Short: "Composite multichannel microscopy volumes into per-slice RGB images",
		Long: `zcomposite turns multichannel 3-D microscopy volumes (.npy arrays with
axes Z, C, X, Y) into per-slice RGB composites. Each channel is contrast
stretched over a percentile window and tinted with its color, then the
visible channels are summed into one image per z slice.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				a.logger.SetLevel(log.DebugLevel)
			}

			cfg, err := config.LoadConfig(a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "zcomposite.yaml", "path to the YAML config file")

	root.AddCommand(a.renderCommand())
	root.AddCommand(a.infoCommand())
	root.AddCommand(a.serveCommand())
	root.AddCommand(a.configCommand())

	return root.ExecuteContext(ctx)
}

// openCache builds the artifact cache from the configuration, with an
// optional directory override from a flag. An empty directory disables
// caching.
func (a *app) openCache(dirOverride string) (cache.Cache, error) {
	dir := a.cfg.Cache.Dir
	if dirOverride != "" {
		dir = dirOverride
	}
	if dir == "" {
		return cache.NullCache{}, nil
	}
	return cache.NewFileCache(dir, a.cfg.CacheTTL())
}
