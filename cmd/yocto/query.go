package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/yocto"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func runQuery(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("query", stderr)
	var eq, prefix, gte, lte, orders multiFlag
	fs.Var(&eq, "eq", "`field=value` equality, repeatable")
	fs.Var(&prefix, "prefix", "`field=value` prefix match, repeatable")
	fs.Var(&gte, "gte", "`field=value` lower bound, repeatable")
	fs.Var(&lte, "lte", "`field=value` upper bound, repeatable")
	fs.Var(&orders, "order", "`field[:desc]` ordering, repeatable")
	schemaPath := fs.String("schema", "", "YAML schema `file` used to type values; strings without it")
	skip := fs.Int("skip", 0, "results to skip")
	limit := fs.Int("limit", -1, "maximum results, negative for all")
	count := fs.Bool("count", false, "print only the number of matches")
	ids := fs.Bool("ids", false, "print only document ids")
	digest := fs.String("digest", "MD5", "digest algorithm the container was built with")
	metricsPath := fs.String("metrics", "", "write Prometheus metrics to `file` when done")
	verbose := fs.Bool("v", false, "log every operation to stderr")
	path, err := parseWithPath(fs, args)
	if err != nil {
		return err
	}

	var schema *Schema
	if *schemaPath != "" {
		if schema, err = LoadSchema(*schemaPath); err != nil {
			return err
		}
	}

	q := yocto.Select().Skip(*skip).Limit(*limit)
	for _, c := range []struct {
		terms multiFlag
		cond  func(string, yocto.Value) yocto.Condition
	}{
		{eq, yocto.Eq},
		{prefix, yocto.Prefix},
		{gte, yocto.Gte},
		{lte, yocto.Lte},
	} {
		for _, term := range c.terms {
			field, v, err := parseTerm(schema, term)
			if err != nil {
				return err
			}
			q.Where(c.cond(field, v))
		}
	}
	for _, o := range orders {
		field, dir := o, yocto.Asc
		if name, d, ok := strings.Cut(o, ":"); ok {
			field = name
			switch d {
			case "asc":
			case "desc":
				dir = yocto.Desc
			default:
				return fmt.Errorf("%w: order %q: direction must be asc or desc", errUsage, o)
			}
		}
		q.OrderBy(field, dir)
	}

	loc, err := parseLocation(path)
	if err != nil {
		return err
	}
	metrics, err := newCommandMetrics(*metricsPath)
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, loc, yocto.WithDigest(*digest), yocto.WithLogger(logger(stderr, *verbose)), metrics.option())
	if err != nil {
		return err
	}
	defer db.Close()

	if *count {
		n, err := db.Count(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, n)
		return metrics.flush()
	}

	docs, err := db.Execute(ctx, q)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if *ids {
			fmt.Fprintln(stdout, doc)
			continue
		}
		p, err := db.Payload(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d\t%s\n", doc, p)
	}
	return metrics.flush()
}

// parseTerm splits field=value and encodes value with the schema type of
// field, or as a string without a schema.
func parseTerm(schema *Schema, term string) (string, yocto.Value, error) {
	field, raw, ok := strings.Cut(term, "=")
	if !ok || field == "" {
		return "", nil, fmt.Errorf("%w: %q is not field=value", errUsage, term)
	}
	if schema == nil {
		return field, yocto.String(raw), nil
	}
	f, ok := schema.Field(field)
	if !ok {
		return "", nil, fmt.Errorf("field %q is not in the schema", field)
	}
	v, err := f.ParseValue(raw)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", field, err)
	}
	return field, v, nil
}
