package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/docpane/layoutstudio/server"
)

var args struct {
	Port    int    `short:"p" default:"8877" help:"Port the editor API listens on"`
	DataDir string `short:"d" type:"path" default:"data" help:"Directory holding annotation JSON files"`
	PDFDir  string `short:"f" type:"path" default:"pdfs" help:"Directory holding source PDFs"`
	Remote  string `short:"r" help:"Remote endpoint annotation files are pushed to on sync"`

	LogLevel string `enum:"debug,info,warn,error" default:"info" help:"Log level"`
	Pretty   bool   `help:"Human-readable log output"`
}

func main() {
	kong.Parse(&args)

	level, err := zerolog.ParseLevel(args.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if args.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg := server.Config{
		Port:    args.Port,
		DataDir: args.DataDir,
		PDFDir:  args.PDFDir,
		Remote:  args.Remote,
	}
	if err := server.Run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server terminated")
	}
}
