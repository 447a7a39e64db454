package cli

import (
	"github.com/spf13/cobra"

	"zcomposite/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render pipeline over HTTP",
		Long: `Serve starts a stateless HTTP service that accepts .npy volume uploads
and answers with rendered slices, zip archives, or channel statistics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, addr, cacheDir)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured one)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache rendered artifacts in this directory")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, addr, cacheDir string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	palette, err := a.cfg.PaletteColors()
	if err != nil {
		return err
	}

	store, err := a.openCache(cacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Options{
		Addr:           addr,
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		Workers:        a.cfg.Render.Workers,
		PreviewMaxEdge: a.cfg.Render.PreviewMaxEdge,
		DefaultWindow:  a.cfg.Window(),
		Palette:        palette,
		Logger:         a.logger,
		Cache:          store,
	})
	return srv.Run(cmd.Context())
}
