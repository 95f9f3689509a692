package cli

import (
	"flag"
	"fmt"
	"io"
)

// Options holds the parsed command line
type Options struct {
	ConfigPath string

	Install   bool
	Uninstall bool
	Restart   bool

	LogPath      string
	OutputPath   string
	PollInterval uint64 // seconds

	Verbose bool
	Show    bool
	Version bool

	set map[string]bool
}

// flag names whose short alias shares the same variable
var aliases = map[string]string{
	"i": "install",
	"u": "uninstall",
	"r": "restart",
	"l": "log",
	"o": "output",
	"t": "time",
	"v": "verbose",
}

// Parse parses args (without the program name). Usage and parse errors are
// written to output.
func Parse(args []string, output io.Writer) (*Options, error) {
	opts := &Options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("ipdrop", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to bootstrap config file")

	fs.BoolVar(&opts.Install, "install", false, "Install the service")
	fs.BoolVar(&opts.Install, "i", false, "Shorthand for --install")
	fs.BoolVar(&opts.Uninstall, "uninstall", false, "Uninstall the service")
	fs.BoolVar(&opts.Uninstall, "u", false, "Shorthand for --uninstall")
	fs.BoolVar(&opts.Restart, "restart", false, "Restart the service")
	fs.BoolVar(&opts.Restart, "r", false, "Shorthand for --restart")

	fs.StringVar(&opts.LogPath, "log", "", "Set the log file path")
	fs.StringVar(&opts.LogPath, "l", "", "Shorthand for --log")
	fs.StringVar(&opts.OutputPath, "output", "", "Set the address output file path")
	fs.StringVar(&opts.OutputPath, "o", "", "Shorthand for --output")
	fs.Uint64Var(&opts.PollInterval, "time", 0, "Set the poll interval in seconds")
	fs.Uint64Var(&opts.PollInterval, "t", 0, "Shorthand for --time")

	fs.BoolVar(&opts.Verbose, "verbose", false, "Log at debug level")
	fs.BoolVar(&opts.Verbose, "v", false, "Shorthand for --verbose")
	fs.BoolVar(&opts.Show, "show", false, "Print the stored settings and exit")
	fs.BoolVar(&opts.Version, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		opts.set[name] = true
	})

	return opts, nil
}

// IsSet reports whether the flag (long name) was given
func (o *Options) IsSet(name string) bool {
	return o.set[name]
}

// ConfigOnly reports whether the invocation only changes settings
func (o *Options) ConfigOnly() bool {
	return o.IsSet("log") || o.IsSet("output") || o.IsSet("time")
}
