package memes3

import (
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/urfave/cli/v2"
)

var S3Opts struct {
	Bucket    string
	PublicURL string
	AssetDir  string
}

var BucketFlag = memecli.StringFlag("bucket", "The bucket dropped images are written to", &S3Opts.Bucket)
var PublicURLFlag = memecli.StringFlag("public-url", "Base URL images are served from, e.g. a CloudFront distribution; defaults to the bucket URL", &S3Opts.PublicURL)
var AssetDirFlag = memecli.StringFlag("asset-dir", "Directory dropped images are written to in dry mode", &S3Opts.AssetDir, "uploads")

var S3Flags = []cli.Flag{
	BucketFlag,
	PublicURLFlag,
	AssetDirFlag,
}
