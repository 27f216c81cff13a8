// Command yocto builds, inspects and queries yocto containers.
//
//	yocto build -schema schema.yaml -in docs.jsonl -out db.yocto
//	yocto inspect db.yocto
//	yocto query db.yocto -eq color=red -order price:desc -limit 10
//
// Containers may also live in object storage. s3://bucket/key uses the
// default AWS configuration chain; minio://host:port/bucket/key reads
// YOCTO_MINIO_ACCESS_KEY and YOCTO_MINIO_SECRET_KEY and uses TLS unless
// YOCTO_MINIO_INSECURE is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/yocto"
)

var errUsage = errors.New("usage")

const usage = `usage: yocto <command> [flags]

commands:
  build    build a container from newline-delimited JSON
  inspect  print documents count, fields and segments
  query    print the payloads of matching documents
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "yocto:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	switch args[0] {
	case "build":
		return runBuild(ctx, args[1:], stdin, stdout, stderr)
	case "inspect":
		return runInspect(ctx, args[1:], stdout, stderr)
	case "query":
		return runQuery(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return errUsage
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("yocto "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseWithPath accepts the container path before or after the flags.
func parseWithPath(fs *flag.FlagSet, args []string) (string, error) {
	var path string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		path, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		fs.Usage()
		return "", fmt.Errorf("%w: missing container path", errUsage)
	}
	return path, nil
}

func logger(stderr io.Writer, verbose bool) *yocto.Logger {
	if !verbose {
		return yocto.NoopLogger()
	}
	return yocto.NewLogger(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
