package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/yocto"
	"github.com/hupe1980/yocto/codec"
)

func runBuild(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	schemaPath := fs.String("schema", "", "YAML schema `file`")
	in := fs.String("in", "-", "newline-delimited JSON input, - for stdin")
	out := fs.String("out", "", "container `file` or s3:// or minio:// location to write")
	codecName := fs.String("codec", codec.Default.Name(), "JSON decoder: json or go-json")
	compress := fs.String("compress", "", "payload compression, overrides the schema: none, lz4 or zstd")
	metricsPath := fs.String("metrics", "", "write Prometheus metrics to `file` when done")
	verbose := fs.Bool("v", false, "log every operation to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *schemaPath == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("%w: -schema and -out are required", errUsage)
	}

	dst, err := parseLocation(*out)
	if err != nil {
		return err
	}
	schema, err := LoadSchema(*schemaPath)
	if err != nil {
		return err
	}
	if *compress != "" {
		schema.Compression = *compress
	}
	opts, err := schema.Options()
	if err != nil {
		return err
	}
	c, ok := codec.ByName(*codecName)
	if !ok {
		return fmt.Errorf("unknown codec %q", *codecName)
	}

	r := stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	metrics, err := newCommandMetrics(*metricsPath)
	if err != nil {
		return err
	}
	opts = append(opts, yocto.WithLogger(logger(stderr, *verbose)), metrics.option())
	b, err := yocto.NewDatabaseBuilder(opts...)
	if err != nil {
		return err
	}
	err = codec.ReadLines(r, c, func(rec codec.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := schema.Document(rec)
		if err != nil {
			return err
		}
		_, err = b.Merge(doc)
		return err
	})
	if err != nil {
		return err
	}

	w, err := b.BuildWritable()
	if err != nil {
		return err
	}
	if err := writeDatabase(ctx, w, dst); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	fmt.Fprintf(stdout, "built %d documents, %d bytes: %s\n", w.DocumentsCount(), w.SizeInBytes(), dst)
	return metrics.flush()
}
