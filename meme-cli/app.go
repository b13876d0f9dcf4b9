// Package memecli provides the shared command-line boilerplate for memecanvas
// binaries: service identity, common flags, structured logging and CloudWatch
// metrics.
package memecli

import (
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v2"
)

func App(service Service, action cli.ActionFunc, flags ...cli.Flag) *cli.App {
	return &cli.App{
		Name:                 service.Name,
		Usage:                fmt.Sprintf("%v service", service.Name),
		Version:              service.Version,
		EnableBashCompletion: true,
		Before:               InitCommonOpts,
		Action:               action,
		Flags:                flags,
	}
}

// InitCommonOpts validates CommonOpts after flag parsing. Dry runs never touch
// AWS, so they always run in console mode.
func InitCommonOpts(c *cli.Context) error {
	if CommonOpts.Env == "" {
		return fmt.Errorf("env must not be empty")
	}
	if CommonOpts.Dry && !CommonOpts.Console {
		CommonOpts.Console = true
	}
	return nil
}

func CommitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}
