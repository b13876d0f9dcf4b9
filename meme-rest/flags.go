package memerest

import (
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme/drop"
	"github.com/urfave/cli/v2"
)

var RestOpts struct {
	TrustForwarded bool
	MaxUploadBytes int64
}

var TrustForwardedFlag = memecli.BoolFlag("trust-forwarded", "Identify uploaders by the first X-Forwarded-For entry; only behind a proxy that sets it", &RestOpts.TrustForwarded)
var MaxUploadBytesFlag = memecli.Int64Flag("max-upload-bytes", "Largest image accepted by /api/drop", &RestOpts.MaxUploadBytes, drop.DefaultMaxBytes)

var RestFlags = []cli.Flag{
	TrustForwardedFlag,
	MaxUploadBytesFlag,
}
