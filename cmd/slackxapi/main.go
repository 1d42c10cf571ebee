package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slackxapi/pkg/actors"
	"github.com/tzrikka/slackxapi/pkg/etcd"
	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/http"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/pipeline"
	"github.com/tzrikka/slackxapi/pkg/slack"
	"github.com/tzrikka/slackxapi/pkg/thrippy"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "slackxapi"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "simple setup, but unsafe for production",
		},
	}
	flags = append(flags, storeFlags(configFilePath)...)
	flags = append(flags, http.Flags(configFilePath)...)
	flags = append(flags, events.Flags(configFilePath)...)
	flags = append(flags, actors.Flags(configFilePath)...)
	flags = append(flags, lrs.Flags(configFilePath)...)
	flags = append(flags, pipeline.Flags(configFilePath)...)
	flags = append(flags, slack.Flags(configFilePath)...)
	flags = append(flags, thrippy.Flags(configFilePath)...)
	flags = append(flags, etcd.Flags(configFilePath)...)

	cmd := &cli.Command{
		Name:    "slackxapi",
		Usage:   "Convert Slack events into xAPI statements, and send them to Learning Record Stores",
		Version: buildInfo.Main.Version,
		Flags:   flags,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:  "rules",
				Usage: "Manage the configuration of rules, actors, LRS targets, and operators",
				Commands: []*cli.Command{
					{
						Name:      "import",
						Usage:     "Import a YAML configuration file into the record store",
						ArgsUsage: "<file>",
						Action:    importRules,
					},
				},
			},
			{
				Name:  "statements",
				Usage: "Maintain persisted xAPI statements",
				Commands: []*cli.Command{
					{
						Name:   "redeliver",
						Usage:  "Retry the delivery of all the undelivered xAPI statements",
						Action: redeliver,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}
