package memeddb

import (
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	Endpoint  string
	TableName string
}

var EndpointFlag = memecli.StringFlag("ddb-endpoint", "Override the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB local", &DDBOpts.Endpoint)
var TableNameFlag = memecli.StringFlag("table-name", "The placements table; defaults to {env}-memecanvas-placements", &DDBOpts.TableName)

var DDBFlags = []cli.Flag{
	EndpointFlag,
	TableNameFlag,
}
