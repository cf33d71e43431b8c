package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"slices"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

// The regionqt version number. Set at build.
var version = "v0.1.0"

// Keeps the config structs from being obfuscated, otherwise the cli package
// generates garbled command-line options.
var (
	_ = reflect.TypeOf(encodeConfig{})
	_ = reflect.TypeOf(decodeConfig{})
	_ = reflect.TypeOf(plotConfig{})
	_ = reflect.TypeOf(viewConfig{})
	_ = reflect.TypeOf(infoConfig{})
	_ = reflect.TypeOf(serveConfig{})
)

type command struct {
	name string
	help string
	run  func(ctx context.Context) error
}

var commands = []command{
	{name: "encode", help: "Builds the region quadtree of an image and writes it to a tree file.", run: runEncode},
	{name: "decode", help: "Rasterizes a tree file back to an image.", run: runDecode},
	{name: "plot", help: "Draws the split lines of an image or tree file into a PNG.", run: runPlot},
	{name: "view", help: "Shows an image or tree file in the terminal.", run: runView},
	{name: "info", help: "Prints the statistics of an image or tree file.", run: runInfo},
	{name: "serve", help: "Starts the regionqt HTTP service.", run: runServe},
	{name: "version", help: "Shows the version.", run: runVersion},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	i := slices.IndexFunc(commands, func(c command) bool { return c.name == os.Args[1] })
	if i < 0 {
		usage()
		os.Exit(1)
	}
	cmd := commands[i]
	// The remaining arguments are the command options.
	os.Args = append(os.Args[:1], os.Args[2:]...)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := cmd.run(ctx); err != nil {
		logs.Fatal(errors.New(cmd.name + " failed").Wrap(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:\n  regionqt <command> [options]\n\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.help)
	}
}

// load registers conf as the options of the running command and parses the
// command line and environment into it.
func load(help string, conf any) {
	cli.Register().
		Help(help).
		Options(conf)
	cli.Load()
}

func setupLogs(level string, indent bool) {
	logs.SetLevel(logs.ParseLevel(level))
	logs.Encoder = json.Marshal
	if indent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal
}

func runVersion(ctx context.Context) error {
	fmt.Println(version)
	return nil
}
