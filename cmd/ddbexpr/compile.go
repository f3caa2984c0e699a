package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

type repeatable []string

func (r *repeatable) String() string { return strings.Join(*r, ",") }

func (r *repeatable) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func runValidate() error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaPath := fs.String("schema", "schema.yaml", "schema file to check")
	fs.Parse(os.Args[1:])

	entities, err := entity.LoadFile(*schemaPath)
	if err != nil {
		return err
	}
	for table, meta := range entities {
		fmt.Printf("ok: %s (%d properties)\n", table, len(meta.Properties()))
	}
	return nil
}

func runCompile() error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	schemaPath := fs.String("schema", "schema.yaml", "schema file")
	table := fs.String("table", "", "entity table name")
	var eqs, prefixes, containments repeatable
	fs.Var(&eqs, "eq", "equality filter, property=value (repeatable)")
	fs.Var(&prefixes, "begins-with", "prefix filter, property=prefix (repeatable)")
	fs.Var(&containments, "contains", "containment filter, property=value (repeatable)")
	fs.Parse(os.Args[1:])

	if *table == "" {
		return fmt.Errorf("--table is required")
	}
	entities, err := entity.LoadFile(*schemaPath)
	if err != nil {
		return err
	}
	meta, ok := entities[*table]
	if !ok {
		return fmt.Errorf("no entity for table %q in %s", *table, *schemaPath)
	}

	c := compiler.New(meta).IncludeDiscriminator()
	add := func(raws []string, build func(prop, val string) predicate.Node) error {
		for _, raw := range raws {
			prop, val, found := strings.Cut(raw, "=")
			if !found {
				return fmt.Errorf("malformed filter %q, want property=value", raw)
			}
			c = c.Where(build(prop, val))
		}
		return nil
	}
	if err := add(eqs, func(prop, val string) predicate.Node {
		return predicate.Eq(prop, parseScalar(val))
	}); err != nil {
		return err
	}
	if err := add(prefixes, predicateBeginsWith); err != nil {
		return err
	}
	if err := add(containments, func(prop, val string) predicate.Node {
		return predicate.Contains(prop, val)
	}); err != nil {
		return err
	}

	compiled, err := c.Build()
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	log.Info().Object("expression", compiled.LogView()).Msg("compiled")
	return nil
}

func predicateBeginsWith(prop, val string) predicate.Node {
	return predicate.BeginsWith(prop, val)
}

// parseScalar guesses the literal type from its text form. Numbers are
// tried before booleans so "1" stays numeric.
func parseScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
