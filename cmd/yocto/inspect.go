package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hupe1980/yocto"
)

func runInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	digest := fs.String("digest", "MD5", "digest algorithm the container was built with")
	verbose := fs.Bool("v", false, "log every operation to stderr")
	path, err := parseWithPath(fs, args)
	if err != nil {
		return err
	}
	loc, err := parseLocation(path)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, loc, yocto.WithDigest(*digest), yocto.WithLogger(logger(stderr, *verbose)))
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(stdout, "documents: %d\n", db.DocumentsCount())
	fmt.Fprintf(stdout, "size:      %d bytes\n", db.SizeInBytes())
	fmt.Fprintln(stdout, "segments:")

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, s := range db.Segments() {
		field := s.Field
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", field, s.Kind, s.Size)
	}
	return tw.Flush()
}
