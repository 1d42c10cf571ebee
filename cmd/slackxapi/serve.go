package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tzrikka/slackxapi/pkg/actors"
	"github.com/tzrikka/slackxapi/pkg/etcd"
	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/http"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/pipeline"
	"github.com/tzrikka/slackxapi/pkg/slack"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/thrippy"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

const (
	storeEtcd   = "etcd"
	storeMemory = "memory"
)

func storeFlags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: `record store backend: "etcd", or "memory" (non-persistent, for development)`,
			Value: storeEtcd,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STORE_BACKEND"),
				toml.TOML("store.backend", configFilePath),
			),
			Validator: func(s string) error {
				if s != storeEtcd && s != storeMemory {
					return fmt.Errorf("unsupported store backend %q", s)
				}
				return nil
			},
		},
		&cli.StringFlag{
			Name:  "seed-file",
			Usage: "optional YAML configuration file to import into the store on startup",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SEED_FILE"),
				toml.TOML("store.seed_file", configFilePath),
			),
			TakesFile: true,
		},
	}
}

// serve runs the HTTP webhook server, the processing workers,
// and optionally a Slack Socket Mode connection, until interrupted.
func serve(ctx context.Context, cmd *cli.Command) error {
	http.InitLog(cmd.Bool("dev"))
	ctx = log.Logger.WithContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if path := cmd.String("seed-file"); path != "" {
		if err := importSeed(ctx, st, path); err != nil {
			return err
		}
	}

	client, appToken, err := slackClient(ctx, cmd)
	if err != nil {
		return err
	}

	proc, err := newProcessor(cmd, st, client)
	if err != nil {
		return err
	}
	q := pipeline.NewQueue(proc, cmd.Int("workers"), cmd.Int("queue-size"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return q.Run(ctx)
	})
	g.Go(func() error {
		return http.Start(ctx, cmd, q.Enqueue)
	})
	if client != nil && appToken != "" {
		g.Go(func() error {
			return client.RunSocketMode(ctx, q.Enqueue)
		})
	}

	return g.Wait()
}

// openStore returns a record store based on the "--store" flag, and a function to close it.
func openStore(ctx context.Context, cmd *cli.Command) (store.Store, func(), error) {
	l := zerolog.Ctx(ctx)

	if cmd.String("store") == storeMemory {
		l.Warn().Msg("using a non-persistent in-memory record store")
		return store.NewMemory(), func() {}, nil
	}

	s, closeFn, err := etcd.NewFromFlags(ctx, cmd)
	if err != nil {
		l.Err(err).Msg("failed to connect to etcd")
		return nil, nil, err
	}

	return s, func() {
		if err := closeFn(); err != nil {
			l.Warn().Err(err).Msg("failed to close etcd client")
		}
	}, nil
}

func importSeed(ctx context.Context, st store.Store, path string) error {
	seed, err := store.LoadSeed(path)
	if err != nil {
		zerolog.Ctx(ctx).Err(err).Msg("failed to load configuration file")
		return err
	}
	return store.Import(ctx, st, seed)
}

// slackClient initializes a Slack Web API client, with a bot token which is either
// configured directly or stored in Thrippy. Without a bot token it returns nil:
// the service still works, but without Slack enrichment and actor provisioning.
func slackClient(ctx context.Context, cmd *cli.Command) (*slack.Client, string, error) {
	l := zerolog.Ctx(ctx)
	botToken := cmd.String("slack-bot-token")
	appToken := cmd.String("slack-app-token")

	if id := cmd.String("slack-thrippy-link-id"); id != "" {
		var err error
		addr, creds := cmd.String("thrippy-server-addr"), thrippy.SecureCreds(cmd)
		botToken, appToken, err = thrippy.SlackTokens(ctx, addr, creds, id)
		if err != nil {
			l.Err(err).Str("link_id", id).Msg("failed to read Slack tokens from Thrippy")
			return nil, "", err
		}
	}

	if botToken == "" {
		l.Warn().Msg("Slack bot token not configured, Slack API lookups are disabled")
		return nil, "", nil
	}

	return slack.NewClientFromFlags(cmd, botToken, appToken), appToken, nil
}

// newProcessor wires together all the stages of the pipeline.
// The Slack client is optional.
func newProcessor(cmd *cli.Command, st store.Store, client *slack.Client) (*pipeline.Processor, error) {
	loc, err := time.LoadLocation(cmd.String("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	// Avoid a non-nil interface holding a nil pointer.
	var api slack.API
	if client != nil {
		api = client
	}

	var opts []events.NormalizerOpt
	permalinks := cmd.Bool("permalinks")
	if permalinks && api != nil {
		opts = append(opts, events.WithPermalinks(events.NewPermalinkResolver(api)))
	}
	if permalinks && api == nil {
		log.Warn().Msg("permalink enrichment requires a Slack bot token")
	}

	cfg := actors.ConfigFromFlags(cmd)
	if cfg.Enabled && !cfg.IRIType.Valid() {
		return nil, fmt.Errorf("invalid actor IRI type %q", cfg.IRIType)
	}

	return pipeline.NewProcessor(
		events.NewNormalizer(loc, opts...),
		actors.NewResolver(st, api, cfg),
		st,
		lrs.NewDelivererFromFlags(cmd),
		xapi.Options{Permalinks: permalinks},
	), nil
}

// importRules imports a YAML configuration file into the record store.
func importRules(ctx context.Context, cmd *cli.Command) error {
	http.InitLog(cmd.Bool("dev"))
	ctx = log.Logger.WithContext(ctx)

	path := cmd.Args().First()
	if path == "" {
		return errors.New("missing configuration file path")
	}
	if cmd.String("store") == storeMemory {
		return errors.New("importing into a non-persistent store has no effect")
	}

	st, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	return importSeed(ctx, st, path)
}

// redeliver retries the delivery of all the persisted statements that
// weren't accepted by any LRS target, e.g. after an extended outage.
func redeliver(ctx context.Context, cmd *cli.Command) error {
	http.InitLog(cmd.Bool("dev"))
	ctx = log.Logger.WithContext(ctx)

	if cmd.String("store") == storeMemory {
		return errors.New("a non-persistent store has nothing to redeliver")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	proc, err := newProcessor(cmd, st, nil)
	if err != nil {
		return err
	}

	n, err := proc.Redeliver(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Redelivered %d xAPI statement(s)\n", n)
	return nil
}
