package pipeline

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Flags defines CLI flags to configure the processing queue. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "number of concurrent Slack payload processors",
			Value: DefaultWorkers,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WORKERS"),
				toml.TOML("pipeline.workers", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "queue-size",
			Usage: "maximum number of Slack payloads waiting for a worker",
			Value: DefaultQueueSize,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QUEUE_SIZE"),
				toml.TOML("pipeline.queue_size", configFilePath),
			),
		},
	}
}
