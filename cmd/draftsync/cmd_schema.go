package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/wire"
)

var schemaPart string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the wire JSON schema or the configured document fields",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		switch schemaPart {
		case "fields":
			encoder := yaml.NewEncoder(out)
			encoder.SetIndent(2)
			defer encoder.Close()
			return encoder.Encode(map[string]any{"schema": cfg.Schema})
		case "request", "chunk":
			schema := wire.RequestSchema()
			if schemaPart == "chunk" {
				schema = wire.ChunkSchema()
			}
			data, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		default:
			return fmt.Errorf("unknown schema %q (want request, chunk or fields)", schemaPart)
		}
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaPart, "part", "request", "request, chunk or fields")
}
