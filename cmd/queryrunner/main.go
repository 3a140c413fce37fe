// Command queryrunner is the command-line front end for the plugin
// execution engine: list configured connections, list and describe loaded
// plugins, and run one plugin against one connection with name=value
// parameters.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/config"
	"github.com/jpmoresmau/queryrunner/internal/engine"
	"github.com/jpmoresmau/queryrunner/internal/pgadapter"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
	"github.com/jpmoresmau/queryrunner/internal/sqliteadapter"
	"github.com/jpmoresmau/queryrunner/internal/table"
)

const (
	defaultConnectionsPath = "config/connections.yaml"
	defaultPluginsDir      = "plugins"
)

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "queryrunner:", err)
		os.Exit(1)
	}
}

const usage = "usage: queryrunner <connections|plugins|describe <plugin>|run <plugin> <connection> [name=value ...]>"

func dispatch(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "connections":
		return connectionsCommand()
	case "plugins":
		return pluginsCommand()
	case "describe":
		if len(args) != 2 {
			return fmt.Errorf("usage: queryrunner describe <plugin>")
		}
		return describeCommand(args[1])
	case "run":
		if len(args) < 3 {
			return fmt.Errorf("usage: queryrunner run <plugin> <connection> [name=value ...]")
		}
		return runCommand(args[1], args[2], args[3:])
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func connectionsCommand() error {
	connections, err := config.LoadConnections(defaultConnectionsPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(connections))
	for name := range connections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("- %s: %s\n", name, connections[name].Kind)
	}
	return nil
}

func pluginsCommand() error {
	ctx := context.Background()
	runtime, err := pluginhost.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)

	plugins, err := config.LoadPlugins(ctx, runtime, defaultPluginsDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		meta, err := plugins[name].Metadata(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("- %s: %s\n", name, meta.Description)
	}
	return nil
}

func describeCommand(plugin string) error {
	ctx := context.Background()
	runtime, err := pluginhost.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)

	plugins, err := config.LoadPlugins(ctx, runtime, defaultPluginsDir)
	if err != nil {
		return err
	}
	module, ok := plugins[plugin]
	if !ok {
		return fmt.Errorf("plugin `%s` not found", plugin)
	}
	meta, err := module.Metadata(ctx)
	if err != nil {
		return err
	}
	fmt.Println(meta.Description)
	for _, p := range meta.Parameters {
		fmt.Printf("- %s: %s\n", p.Name, p.Kind)
	}
	return nil
}

func runCommand(plugin, connection string, rawParams []string) error {
	params := make(map[string]string, len(rawParams))
	for _, arg := range rawParams {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%q is not a valid name=value parameter", arg)
		}
		params[name] = value
	}

	ctx := context.Background()
	connections, err := config.LoadConnections(defaultConnectionsPath)
	if err != nil {
		return err
	}
	runtime, err := pluginhost.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)
	plugins, err := config.LoadPlugins(ctx, runtime, defaultPluginsDir)
	if err != nil {
		return err
	}

	sqliteAdapter := sqliteadapter.New()
	defer sqliteAdapter.Close()
	adapters := map[qr.ConnectionKind]qr.Adapter{
		qr.ConnectionSQLite:   sqliteAdapter,
		qr.ConnectionPostgres: pgadapter.New(),
	}

	eng := engine.New(plugins, connections, adapters, nil)
	result, err := eng.Run(ctx, plugin, connection, params)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Println("<no result>")
		return nil
	}
	return table.WriteResult(os.Stdout, result)
}
