package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	memecli "github.com/memecanvas/memecanvas/meme-cli"
	memeclient "github.com/memecanvas/memecanvas/meme-client"
	"github.com/memecanvas/memecanvas/meme/canvas"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/urfave/cli/v2"
)

var opts struct {
	API     string
	File    string
	ScreenX float64
	ScreenY float64
	View    canvas.View
}

var service = memecli.NewService("meme-drop")

func main() {
	app := memecli.App(service, nil,
		&memecli.EnvFlag,
		memecli.StringFlag("api", "Base URL of the canvas API", &opts.API, "http://localhost:3000"),
	)
	app.Usage = "drop images onto the canvas and watch it change"
	app.Commands = []*cli.Command{
		{
			Name:   "drop",
			Usage:  "upload an image at a screen position under a view",
			Action: dropAction,
			Flags: []cli.Flag{
				memecli.StringFlag("file", "Image to upload", &opts.File),
				memecli.Float64Flag("screen-x", "Horizontal screen position of the drop", &opts.ScreenX, 0),
				memecli.Float64Flag("screen-y", "Vertical screen position of the drop", &opts.ScreenY, 0),
				memecli.Float64Flag("pan-x", "Horizontal pan of the view", &opts.View.PanX, 0),
				memecli.Float64Flag("pan-y", "Vertical pan of the view", &opts.View.PanY, 0),
				memecli.Float64Flag("scale", "Zoom scale of the view", &opts.View.Scale, 1),
			},
		},
		{
			Name:   "watch",
			Usage:  "print every placement on the canvas, then each new one as it arrives",
			Action: watchAction,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func dropAction(c *cli.Context) error {
	if opts.File == "" {
		return fmt.Errorf("--file is required")
	}
	f, err := os.Open(opts.File)
	if err != nil {
		return err
	}
	defer f.Close()

	client := memeclient.New(opts.API)
	screen := canvas.Point{X: opts.ScreenX, Y: opts.ScreenY}
	p, err := client.DropAt(c.Context, filepath.Base(opts.File), f, screen, opts.View)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func watchAction(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	client := memeclient.New(opts.API)
	return client.Watch(ctx, placement.NewSet(), func(e memeclient.Event) {
		_ = printJSON(e.Placement)
	})
}

func printJSON(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}

