package memews

import (
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/urfave/cli/v2"
)

var WSOpts struct {
	StreamName    string
	SessionBuffer int
}

var StreamNameFlag = memecli.StringFlag("stream-name", "Kinesis stream shared by API instances; placements go through it when set", &WSOpts.StreamName)
var SessionBufferFlag = memecli.IntFlag("session-buffer", "Placements queued per viewer before the viewer is dropped", &WSOpts.SessionBuffer, DefaultSessionBuffer)

var WSFlags = []cli.Flag{
	StreamNameFlag,
	SessionBufferFlag,
}
