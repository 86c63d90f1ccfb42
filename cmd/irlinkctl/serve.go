package main

import (
	"github.com/danmuck/irlink/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status surface and receive loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			h, err := c.openHandler(cmd.Context())
			if err != nil {
				return err
			}
			defer closeHandler(h)

			srv := server.New(appName, c.cfg.HTTP.Addr, h, c.cfg.HTTP.CorsOrigins)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Serve(ctx)
			})
			g.Go(func() error {
				return srv.ReceiveLoop(ctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
