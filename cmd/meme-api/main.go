package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/s3"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	memeddb "github.com/memecanvas/memecanvas/meme-ddb"
	"github.com/memecanvas/memecanvas/meme-ddb/placementdao"
	memegql "github.com/memecanvas/memecanvas/meme-gql"
	memerest "github.com/memecanvas/memecanvas/meme-rest"
	memes3 "github.com/memecanvas/memecanvas/meme-s3"
	memesecret "github.com/memecanvas/memecanvas/meme-secret"
	memews "github.com/memecanvas/memecanvas/meme-ws"
	"github.com/memecanvas/memecanvas/meme-ws/publish"
	"github.com/memecanvas/memecanvas/meme/cooldown"
	"github.com/memecanvas/memecanvas/meme/drop"
	"github.com/memecanvas/memecanvas/meme/moderation"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var opts struct {
	LexiconSecret     string
	ModerationTimeout time.Duration
	MinConfidence     float64
	Cooldown          time.Duration
}

var service = memecli.NewService("meme-api")

func main() {
	flags := append(memecli.CommonFlags, memecli.PortFlag(3000))
	flags = append(flags, memeddb.DDBFlags...)
	flags = append(flags, memes3.S3Flags...)
	flags = append(flags, memews.WSFlags...)
	flags = append(flags, memerest.RestFlags...)
	flags = append(flags,
		memecli.StringFlag("lexicon-secret", "Secrets Manager secret holding extra filename terms as {\"terms\": [...]}", &opts.LexiconSecret),
		memecli.DurationFlag("moderation-timeout", "Deadline for one content-safety classification", &opts.ModerationTimeout, moderation.DefaultTimeout),
		memecli.Float64Flag("min-confidence", "Lowest Rekognition label confidence considered", &opts.MinConfidence, moderation.DefaultMinConfidence),
		memecli.DurationFlag("cooldown", "Minimum time between accepted drops from one origin", &opts.Cooldown, cooldown.DefaultWindow),
	)

	app := memecli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

type store interface {
	drop.PlacementStore
	memerest.Lister
	Get(ctx context.Context, id string) (*placement.Placement, error)
}

func action(_ *cli.Context) error {
	logger := memecli.Logger(service)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	s, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create aws session: %w", err)
	}

	var (
		placements store
		assets     drop.AssetStore
		assetFiles *memes3.DirStore
	)
	if memecli.CommonOpts.Dry {
		placements = placement.NewMemoryStore()
		assetFiles = memes3.NewDirStore(memes3.S3Opts.AssetDir, fmt.Sprintf("http://localhost:%v/assets", memecli.CommonOpts.Port))
		assets = assetFiles
		logger.Info().Str("dir", memes3.S3Opts.AssetDir).Msg("dry run, keeping placements in memory")
	} else {
		if memes3.S3Opts.Bucket == "" {
			return fmt.Errorf("--bucket is required unless running dry")
		}
		tableName := memeddb.DDBOpts.TableName
		if tableName == "" {
			tableName = placementdao.TableName(memecli.CommonOpts.Env)
		}
		placements = placementdao.New(memeddb.DynamoDBAPI(s), tableName)
		assets = memes3.New(s3.New(s), memes3.S3Opts.Bucket, memes3.S3Opts.PublicURL)
	}

	moderator, err := newModerator(s, logger)
	if err != nil {
		return err
	}

	var metrics memecli.Metrics
	if memecli.CommonOpts.Metrics && !memecli.CommonOpts.Dry {
		metrics = memecli.NewMetrics(service, cloudwatch.New(s))
	}

	guard := cooldown.New(opts.Cooldown)
	guard.StartSweeper(time.Minute, ctx.Done())

	hub := memews.NewHub(logger, memews.WSOpts.SessionBuffer)
	var fanout drop.Broadcaster = hub
	var relay *memews.Relay
	if memews.WSOpts.StreamName != "" && !memecli.CommonOpts.Dry {
		fanout = publish.New(kinesis.New(s), memews.WSOpts.StreamName)
		relay = &memews.Relay{Hub: hub, Logger: logger, StreamName: memews.WSOpts.StreamName}
	}

	gql, err := memegql.Handler(&memegql.Resolver{Store: placements})
	if err != nil {
		return err
	}

	drops := &drop.Service{
		Guard:     guard,
		Moderator: moderator,
		Assets:    assets,
		Store:     placements,
		Fanout:    fanout,
		Logger:    logger,
		Metrics:   metrics,
		MaxBytes:  memerest.RestOpts.MaxUploadBytes,
	}

	config := memerest.Config{
		Logger:         logger,
		Drops:          drops,
		Store:          placements,
		Viewers:        memews.NewHandler(hub, placements, logger),
		GraphQL:        gql,
		MaxBytes:       memerest.RestOpts.MaxUploadBytes,
		TrustForwarded: memerest.RestOpts.TrustForwarded,
	}
	if memegql.AllowIntrospection() {
		config.Playground = memegql.Playground("/graphql")
	}
	if assetFiles != nil {
		config.Assets = assetFiles.Handler()
	}
	routes := memerest.Routes(config)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return memerest.Webserver(logger, routes)
	})
	if relay != nil {
		group.Go(func() error {
			return relay.Run(ctx)
		})
	}
	if memecli.CommonOpts.Metrics {
		group.Go(func() error {
			return hub.ReportSessions(ctx, metrics, time.Minute)
		})
	}
	return group.Wait()
}

func newModerator(s *session.Session, logger zerolog.Logger) (*moderation.Pipeline, error) {
	var extra []string
	if opts.LexiconSecret != "" {
		terms, err := memesecret.LoadLexicon(s, opts.LexiconSecret)
		if err != nil {
			return nil, err
		}
		extra = terms
		logger.Info().Int("terms", len(terms)).Str("secret", opts.LexiconSecret).Msg("loaded lexicon terms")
	}

	classifier := moderation.NewRekognition(rekognition.New(s))
	classifier.MinConfidence = opts.MinConfidence

	return &moderation.Pipeline{
		Lexicon:    moderation.DefaultWordList(extra...),
		Classifier: classifier,
		Timeout:    opts.ModerationTimeout,
	}, nil
}
