package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCmd(c *cli) *cobra.Command {
	var asHex bool
	cmd := &cobra.Command{
		Use:   "send <payload>",
		Short: "Send one frame on the configured channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			if asHex {
				decoded, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("decode hex payload: %w", err)
				}
				payload = decoded
			}

			h, err := c.openHandler(cmd.Context())
			if err != nil {
				return err
			}
			defer closeHandler(h)

			if err := h.Send(payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes on %s\n", len(payload), h.Active())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "payload argument is hex encoded")
	return cmd
}
