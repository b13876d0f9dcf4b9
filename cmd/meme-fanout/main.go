package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	memeddb "github.com/memecanvas/memecanvas/meme-ddb"
	"github.com/memecanvas/memecanvas/meme-ddb/placementdao"
	memews "github.com/memecanvas/memecanvas/meme-ws"
	"github.com/memecanvas/memecanvas/meme-ws/publish"
	"github.com/urfave/cli/v2"
)

var service = memecli.NewService("meme-fanout")

func main() {
	flags := append(memecli.CommonFlags, memeddb.DDBFlags...)
	flags = append(flags, memews.StreamNameFlag)

	app := memecli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

// action forwards every placement inserted into the table onto the stream the
// API instances relay to their viewers.
func action(_ *cli.Context) error {
	s, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create aws session: %w", err)
	}

	tableName := memeddb.DDBOpts.TableName
	if tableName == "" {
		tableName = placementdao.TableName(memecli.CommonOpts.Env)
	}
	streamName := memews.WSOpts.StreamName
	if streamName == "" {
		streamName = publish.StreamName(memecli.CommonOpts.Env)
	}

	publisher := publish.New(kinesis.New(s), streamName)
	handler := memeddb.NewHandler(service, tableName, publisher.Publish)

	return handler.Start(context.Background(), s)
}
