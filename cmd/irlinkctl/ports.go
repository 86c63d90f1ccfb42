package main

import (
	"fmt"

	"github.com/danmuck/irlink/internal/comm"
	"github.com/spf13/cobra"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := comm.ListSerialPorts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range comm.SortedPortNames(ports) {
				if desc := ports[name]; desc != "" {
					fmt.Fprintf(out, "%s\t%s\n", name, desc)
					continue
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List rendezvous rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, room := range comm.ListRooms() {
				fmt.Fprintln(cmd.OutOrStdout(), room)
			}
			return nil
		},
	}
}
