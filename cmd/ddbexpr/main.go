// ddbexpr compiles DynamoDB expressions from declarative entity schemas.
//
// # Commands
//
//	ddbexpr validate   Check a schema file
//	ddbexpr compile    Compile a filter expression against an entity
//
// # Quick Start
//
// Declare entities in a schema file:
//
//	entities:
//	  - table: users
//	    properties:
//	      - {name: UserID, attribute: pk, type: S, partitionKey: true}
//	      - {name: Kind, attribute: sk, type: S, sortKey: true}
//	      - {name: IsActive, attribute: is_active, type: BOOL}
//
// Compile a filter:
//
//	ddbexpr compile --schema schema.yaml --table users --eq IsActive=true
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	// Remove the subcommand from args so flag parsing works
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	var err error
	switch cmd {
	case "validate":
		err = runValidate()
	case "compile":
		err = runCompile()
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("ddbexpr version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "ddbexpr: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ddbexpr %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ddbexpr - DynamoDB expression compiler

Usage:
  ddbexpr <command> [flags]

Commands:
  validate   Check a schema file
  compile    Compile a filter expression against an entity

Examples:
  ddbexpr validate --schema schema.yaml

  ddbexpr compile --schema schema.yaml --table users \
      --eq IsActive=true --begins-with Kind=ORDER#

Run 'ddbexpr <command> --help' for more information on a command.`)
}
