package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/config"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/rcservice"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config  string `long:"config" short:"c" description:"path to the YAML configuration file"`
	Client  string `long:"client" description:"management client executable, overrides the configuration"`
	Verbose bool   `long:"verbose" short:"v" description:"log at debug level"`
	Args    struct {
		Command string `positional-arg-name:"command" description:"[fast|force|one|quiet](start|stop|reload|restart|status|rcvar|verify)"`
	} `positional-args:"yes"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout io.Writer, stderr io.Writer) int {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	parser.Name = config.DefaultServiceName
	if _, err := parser.ParseArgs(argv); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return errors.ExitSuccess
		}
		fmt.Fprintf(stderr, "Command line flags parsing failed: %v\n", err)
		return errors.ExitFailure
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration failed: %v\n", err)
		return errors.ExitFailure
	}

	zapLogger, err := logging.NewZapLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Logger setup failed: %v\n", err)
		return errors.ExitFailure
	}
	defer zapLogger.Sync()

	logger := logging.WithPrefix(logPrefix(cfg.Service.Name), zapLogger)
	logger.Debugf("opts: %+v", opts)

	service := rcservice.NewMDNSAdvertiseService(cfg, rcservice.Dependencies{
		ClientStderr: stderr,
	}, stdout, logger)

	if opts.Args.Command == "" {
		fmt.Fprintln(stderr, service.Usage())
		return errors.ExitFailure
	}

	err = service.Dispatch(context.Background(), opts.Args.Command)
	if errors.IsUsageError(err) {
		fmt.Fprintf(stderr, "%s: unknown directive '%s'.\n%s\n", cfg.Service.Name, opts.Args.Command, service.Usage())
	}
	return errors.ExitCode(err)
}

func loadConfig(opts flagOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.Config != "" {
		loaded, err := config.LoadConfigFromFile(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Client != "" {
		cfg.Client.ExecutablePath = opts.Client
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
