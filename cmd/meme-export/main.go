package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	memeddb "github.com/memecanvas/memecanvas/meme-ddb"
	"github.com/memecanvas/memecanvas/meme-ddb/placementdao"
	memereport "github.com/memecanvas/memecanvas/meme-report"
	"github.com/urfave/cli/v2"
)

var service = memecli.NewService("meme-export")

func main() {
	flags := append(memecli.CommonFlags, memeddb.DDBFlags...)
	flags = append(flags, memereport.ReportFlags...)

	app := memecli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	s, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create aws session: %w", err)
	}

	tableName := memeddb.DDBOpts.TableName
	if tableName == "" {
		tableName = placementdao.TableName(memecli.CommonOpts.Env)
	}
	store := placementdao.New(memeddb.DynamoDBAPI(s), tableName)

	handler := memereport.NewHandler(service, memereport.ExportReportName, s3.New(s), memereport.CanvasExport(store, time.Now))
	return handler.Start(context.Background())
}
