package thrippy

import (
	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	DefaultGRPCAddress = "localhost:14460"
)

// Flags defines CLI flags to configure a Thrippy gRPC client. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "thrippy-server-addr",
			Usage: "Thrippy gRPC server address",
			Value: DefaultGRPCAddress,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_SERVER_ADDRESS"),
				toml.TOML("thrippy.server_address", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "thrippy-server-ca-cert",
			Usage: "Thrippy server's CA certificate PEM file (used for TLS)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_SERVER_CA_CERT"),
				toml.TOML("thrippy.server_ca_cert", configFilePath),
			),
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "thrippy-server-name-override",
			Usage: "Thrippy server's name override (for testing TLS)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_SERVER_NAME_OVERRIDE"),
				toml.TOML("thrippy.server_name_override", configFilePath),
			),
		},
	}
}

// SecureCreds initializes gRPC client credentials, based on [Flags].
// In dev mode, or if no CA certificate is configured, they are insecure.
func SecureCreds(cmd *cli.Command) credentials.TransportCredentials {
	caCert := cmd.String("thrippy-server-ca-cert")
	if cmd.Bool("dev") || caCert == "" {
		return insecureCreds()
	}

	creds, err := credentials.NewClientTLSFromFile(caCert, cmd.String("thrippy-server-name-override"))
	if err != nil {
		log.Fatal().Err(err).Str("path", caCert).Msg("failed to load Thrippy server's CA certificate")
	}
	return creds
}

func insecureCreds() credentials.TransportCredentials {
	return insecure.NewCredentials()
}
