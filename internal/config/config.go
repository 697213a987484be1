// Package config parses the engine's command-line configuration (spec
// §6): shard count, initial-load file path, log level, and a skip-load
// flag. No environment variables are consumed by the core, by design
// (spec §6) — unlike torua's cmd/node, which is configured entirely
// through NODE_*/COORDINATOR_ADDR env vars
// (_examples/johnjansen-torua/cmd/node/main.go). The flag surface itself
// is grounded on that file's field set (shard count, listen address,
// log level); the parsing library is alecthomas/kong, present in the
// example pack's dependency graph (AKJUS-bsc-erigon/erigon-lib's
// go.mod) though not exercised by any retrieved source there — its
// struct-tag API is otherwise idiomatic for exactly this shape of CLI.
package config

import "github.com/alecthomas/kong"

// CLI is the full command-line surface for cmd/labeldexd.
type CLI struct {
	Shards int `help:"Number of shards to run." default:"4" short:"s"`

	InitialLoad string `help:"Path to a newline-delimited record file loaded at startup." optional:"" type:"path"`
	SkipLoad    bool   `help:"Skip the initial dataset load even if --initial-load is set." default:"false"`

	ListenAddr string `help:"HTTP listen address." default:":8080"`

	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error"`
}

// Parse parses args (typically os.Args[1:]) into a CLI. It returns an
// error instead of exiting the process so callers (and tests) can
// control process lifetime.
func Parse(name string, args []string) (*CLI, error) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name(name),
		kong.Description("In-memory inverted-index search engine for label-annotated records."),
		kong.UsageOnError(),
	)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &cli, nil
}
