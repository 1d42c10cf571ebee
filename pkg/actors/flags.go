package actors

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slackxapi/pkg/xapi"
)

const (
	DefaultAdminUser = "admin"
)

// Flags defines CLI flags to configure actor provisioning. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "actor-creation-enabled",
			Usage: "create missing xAPI actors based on Slack user profiles",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ENABLE_ACTOR_AUTOCREATION"),
				toml.TOML("actors.creation_enabled", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "actor-iri-type",
			Usage: "IRI type of automatically-created actors (account, mbox, mbox_sha1sum, openid)",
			Value: string(xapi.Mbox),
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ACTOR_IRI_TYPE"),
				toml.TOML("actors.iri_type", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "actor-admin-user",
			Usage: "operator name recorded as the creator of automatically-created actors",
			Value: DefaultAdminUser,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ACTOR_ADMIN_USER"),
				toml.TOML("actors.admin_user", configFilePath),
			),
		},
	}
}

// ConfigFromFlags returns a [Config] based on [Flags].
func ConfigFromFlags(cmd *cli.Command) Config {
	return Config{
		Enabled:   cmd.Bool("actor-creation-enabled"),
		IRIType:   xapi.IRIType(cmd.String("actor-iri-type")),
		AdminUser: cmd.String("actor-admin-user"),
	}
}
