package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newListenCmd(c *cli) *cobra.Command {
	var (
		count int
		idle  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print received frames as hex until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := c.openHandler(ctx)
			if err != nil {
				return err
			}
			defer closeHandler(h)

			received := 0
			for count <= 0 || received < count {
				payload, ok, err := h.Receive(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				if !ok {
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(idle):
					}
					continue
				}
				received++
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(payload))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many frames (0 means forever)")
	cmd.Flags().DurationVar(&idle, "idle", 5*time.Millisecond, "pause between empty receives")
	return cmd
}
