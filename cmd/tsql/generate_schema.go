package main

import (
	"github.com/spf13/cobra"

	"github.com/gopsql/tsql/internal/cli"
	"github.com/gopsql/tsql/schema"
)

var (
	genSchemaURL    string
	genSchemaDriver string
	genSchemaOutput string
)

var generateSchemaCmd = &cobra.Command{
	Use:   "generate-schema",
	Short: "(Re-)Generate the database schema in JSON format",
	Long: `Read every table of the database and write the schema to tsql/schema.json.

The database url is taken from --database-url, the DATABASE_URL environment
variable, a .env file or database.url of tsql.yaml, in this order.`,
	Example: `  # Read the schema of a SQLite database
  tsql generate-schema --database-url sqlite://app.db

  # Read the schema of a Postgres database with lib/pq
  DATABASE_URL=postgres://localhost/app tsql generate-schema --driver pq`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := cfg.DatabaseURL(genSchemaURL)
		if err != nil {
			return err
		}
		driver := cli.ResolveString(genSchemaDriver, cfg.Database.Driver)
		output := cli.ResolveString(genSchemaOutput, cfg.Schema, schema.DefaultPath)

		conn, dialect, err := schema.Open(url, driver)
		if err != nil {
			return cli.OpenError(err)
		}
		defer conn.Close()

		s, err := schema.Inspect(cmd.Context(), conn, dialect)
		if err != nil {
			return cli.SchemaParseError("reading schema", err)
		}
		if err := s.Write(output); err != nil {
			return cli.GeneralError("writing schema", err)
		}
		log.Info("Schema file updated under", output)
		return nil
	},
}

func init() {
	generateSchemaCmd.Flags().StringVarP(&genSchemaURL, "database-url", "d", "", "database url (default: DATABASE_URL)")
	generateSchemaCmd.Flags().StringVar(&genSchemaDriver, "driver", "", "postgres driver: pgx, pq or gopg")
	generateSchemaCmd.Flags().StringVarP(&genSchemaOutput, "output", "o", "", "schema file (default: "+schema.DefaultPath+")")
}
