// Command otpvault generates one-time passwords from tokens kept in an
// encrypted local store.
//
// Usage:
//
//	otpvault [-config file] [-store path] <command> [flags] [args]
//
// Run "otpvault help" for the list of commands.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jeremyhahn/go-otpvault/pkg/config"
	"github.com/jeremyhahn/go-otpvault/pkg/logging"
	"github.com/jeremyhahn/go-otpvault/pkg/store"
)

var (
	// version is set via ldflags.
	version = "dev"

	errUsage = errors.New("usage error")
)

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"init", "create a new empty store", cmdInit},
	{"list", "show current codes", cmdList},
	{"add", "add a token", cmdAdd},
	{"remove", "remove a token: remove <id|label>", cmdRemove},
	{"next", "print a code, advancing HOTP counters: next <id|label>", cmdNext},
	{"verify", "check a code: verify <id|label> <code>", cmdVerify},
	{"import", "import an Authy backup: import [-schema totp|native] [-format xml|json] <file>", cmdImport},
	{"passwd", "change the store password", cmdPasswd},
	{"export", "print tokens as otpauth URIs in YAML", cmdExport},
}

// app carries the per-invocation state shared by commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.Store
	prompt promptFunc
	out    io.Writer
	now    func() time.Time
}

func main() {
	os.Exit(run(os.Args[1:], newTerminalPrompt(os.Stdin, os.Stderr), os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(args []string, prompt promptFunc, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("otpvault", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	storePath := fs.String("store", "", "path to the store file (overrides configuration)")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	switch name {
	case "help":
		usage(stdout)
		return 0
	case "version":
		fmt.Fprintf(stdout, "otpvault %s\n", version)
		return 0
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "otpvault: unknown command %q\n", name)
		usage(stderr)
		return 2
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "otpvault: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "otpvault: %v\n", err)
		return 1
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "otpvault: %v\n", err)
		return 1
	}

	logger, err := logging.NewWithWriter(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "otpvault: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	a := &app{
		cfg:    cfg,
		logger: logger,
		store: store.New(cfg.StorePath,
			store.WithKDFParams(store.KDFParams(cfg.KDF)),
			store.WithLogger(logger.Named("store"))),
		prompt: prompt,
		out:    stdout,
		now:    time.Now,
	}
	defer a.store.Close()

	if err := cmd.run(a, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "otpvault %s: %v\n", name, err)
			return 2
		}
		logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(stderr, "otpvault: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: otpvault [-config file] [-store path] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "  %-8s %s\n", "version", "print the version")
}
