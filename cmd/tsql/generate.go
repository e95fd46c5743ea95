package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gopsql/tsql/gen"
	"github.com/gopsql/tsql/internal/cli"
	"github.com/gopsql/tsql/schema"
)

var (
	genSchema  string
	genOutput  string
	genPackage string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate entities from the schema file",
	Long: `Generate one Go file per table of the schema file, declaring the record
struct, entity, typed columns, active struct and relations of the table.

Fields can be renamed, retyped and tagged under generate.tables of tsql.yaml.`,
	Example: `  tsql generate --schema tsql/schema.json --out internal/models --package models`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := cli.ResolveString(genSchema, cfg.Schema, schema.DefaultPath)
		output := cli.ResolveString(genOutput, cfg.Generate.Output)
		pkg := cli.ResolveString(genPackage, cfg.Generate.Package, filepath.Base(output))

		if _, err := os.Stat(schemaPath); err != nil {
			return cli.SchemaParseError("schema not found: "+schemaPath+", run generate-schema first", nil)
		}
		s, err := schema.Load(schemaPath)
		if err != nil {
			return cli.SchemaParseError("parsing schema", err)
		}

		files, err := gen.GenerateAll(cmd.Context(), s, pkg, cfg.TableOptions())
		if err != nil {
			return cli.SchemaParseError("generating code", err)
		}

		if err := os.MkdirAll(output, 0o755); err != nil {
			return cli.GeneralError("creating output directory", err)
		}
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(output, name)
			if err := os.WriteFile(path, files[name], 0o644); err != nil {
				return cli.GeneralError("writing "+path, err)
			}
			log.Info("Generated", path)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genSchema, "schema", "s", "", "schema file (default: "+schema.DefaultPath+")")
	generateCmd.Flags().StringVarP(&genOutput, "out", "o", "", "output directory (default: models)")
	generateCmd.Flags().StringVarP(&genPackage, "package", "p", "", "package name (default: models)")
}
