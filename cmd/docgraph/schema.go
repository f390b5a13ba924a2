package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/docgraph/internal/driver"
	"github.com/agenthands/docgraph/internal/logger"
)

func schemaCmd(g *globalFlags) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create graph constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				for _, stmt := range driver.SchemaStatements() {
					fmt.Fprintln(cmd.OutOrStdout(), stmt+";")
				}
				return nil
			}

			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			if err := d.ApplySchema(ctx); err != nil {
				return err
			}
			logger.Info("schema applied", "statements", len(driver.SchemaStatements()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the Cypher statements instead of running them")
	return cmd
}
