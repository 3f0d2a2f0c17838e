// Command teamfee-data exports or imports the team fee document against the
// configured store.
//
//	teamfee-data export [-output team-fee-data.json]
//	teamfee-data import -input team-fee-data.json
//	teamfee-data summary
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"teamfee/internal/cli"
	"teamfee/internal/core"
	"teamfee/internal/log"
	"teamfee/internal/repository"
	"teamfee/internal/services"
)

const commandTimeout = 2 * time.Minute

var errUsage = errors.New("usage: teamfee-data export|import|summary [flags]")

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentTransfer)
	cli.MustValidate(logger, cfg.Validate)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	repo := cli.LoadRepository(ctx, logger, res, cfg.GlobalFee)
	svc := services.NewTeamService(repo, res.Publisher(),
		services.WithLogger(logger.WithComponent(log.ComponentService)))

	err := run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout)
	if cerr := res.Close(); cerr != nil {
		logger.Warn("Backend cleanup error", log.FieldError, cerr)
	}
	if err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *services.TeamService, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		output := fs.String("output", "", "file to write (default: stdout)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return exportTo(svc, *output, stdout)

	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		input := fs.String("input", "-", "file to read, - for stdin")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return importFrom(ctx, svc, *input, stdin, stdout)

	case "summary":
		summary, _ := svc.Summary()
		fmt.Fprintf(stdout, "people: %d\nbillable: %s\nglobal fee: %v%%\ntotal fee: %s\n",
			summary.PeopleCount,
			core.FormatAmount(summary.Billable),
			summary.GlobalFee,
			core.FormatAmount(summary.Total))
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func exportTo(svc *services.TeamService, path string, stdout io.Writer) error {
	if path == "" {
		return svc.Export(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := svc.Export(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func importFrom(ctx context.Context, svc *services.TeamService, path string, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read import document: %w", err)
	}

	var doc repository.Document
	if doc, err = svc.Import(ctx, data); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d teams and %d people\n", len(doc.Teams), len(doc.People))
	return nil
}
