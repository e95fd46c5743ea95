// Command tsql reads the schema of a database and generates entity
// declarations of package tsql from it.
//
// Usage:
//
//	tsql [flags] <command>
//
// Commands:
//   - generate-schema: Read tables of the database into tsql/schema.json
//   - generate: Generate Go code of every table of the schema file
//
// The database url is read from --database-url, the DATABASE_URL
// environment variable, a .env file or the database.url of tsql.yaml.
package main

import "os"

func main() {
	os.Exit(Execute())
}
