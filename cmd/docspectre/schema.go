package main

import (
	"strings"

	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/spf13/cobra"
)

// NewSchemaCmd prints the DDL an inventory mirror must provide for --source clickhouse
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the ClickHouse inventory mirror schema",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(strings.TrimSpace(collector.MirrorSchema))
		},
	}
}
