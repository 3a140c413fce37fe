// Package config loads the two on-disk registries the engine needs: the
// YAML connection map and the directory of plugin binaries. Both loaders
// are intentionally dumb — they populate typed structs and hand them to
// the caller, who owns wiring them into an engine.Engine.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
)

type rawConnection struct {
	DB     string `yaml:"db"`
	Path   string `yaml:"path"`
	Config string `yaml:"config"`
}

// LoadConnections reads a YAML file mapping connection name to its driver
// configuration, per spec §6 "Connection configuration". Unknown db values
// are a fatal load error — there is no silent skip.
func LoadConnections(path string) (map[string]qr.Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %s", qr.ErrConfiguration, path, err)
	}
	var raw map[string]rawConnection
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %s", qr.ErrConfiguration, path, err)
	}
	connections := make(map[string]qr.Connection, len(raw))
	for name, rc := range raw {
		switch rc.DB {
		case "sqlite":
			if rc.Path == "" {
				return nil, fmt.Errorf("%w: connection %q: no path provided", qr.ErrConfiguration, name)
			}
			connections[name] = qr.Connection{Name: name, Kind: qr.ConnectionSQLite, SQLitePath: rc.Path}
		case "postgres":
			if rc.Config == "" {
				return nil, fmt.Errorf("%w: connection %q: no config provided", qr.ErrConfiguration, name)
			}
			connections[name] = qr.Connection{Name: name, Kind: qr.ConnectionPostgres, PostgresDSN: rc.Config}
		case "":
			return nil, fmt.Errorf("%w: connection %q: no db field", qr.ErrConfiguration, name)
		default:
			return nil, fmt.Errorf("%w: connection %q: unknown database type %q", qr.ErrConfiguration, name, rc.DB)
		}
	}
	return connections, nil
}

// LoadPlugins compiles every *.wasm file in dir, naming each plugin after
// its file stem (spec §6 "Plugin discovery").
func LoadPlugins(ctx context.Context, runtime *pluginhost.Runtime, dir string) (map[string]pluginhost.Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading plugin directory %q: %s", qr.ErrConfiguration, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wasm" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	plugins := make(map[string]pluginhost.Module, len(names))
	for _, fileName := range names {
		name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		module, err := runtime.LoadFile(ctx, name, filepath.Join(dir, fileName))
		if err != nil {
			return nil, err
		}
		plugins[name] = module
	}
	return plugins, nil
}
