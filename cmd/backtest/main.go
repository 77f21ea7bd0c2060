// Backtest - Deterministic replay of historical price data
//
// Feeds a CSV of price observations (timestamp,asset,price) through the same
// execution engine the live bot runs, then prints the session report. The
// engine is deterministic, so the same CSV always produces the same trades.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/config"
	"github.com/polylag/lagbot/internal/engine"
	"github.com/polylag/lagbot/internal/replay"
	"github.com/polylag/lagbot/internal/report"
	"github.com/polylag/lagbot/internal/tradelog"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	dataPath := flag.String("data", "", "historical price CSV (timestamp,asset,price)")
	logPath := flag.String("tradelog", "", "optional CSV to append closed trades to")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *dataPath == "" {
		log.Fatal().Msg("usage: backtest -data prices.csv [-tradelog trades.csv]")
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	stats := engine.NewStats()
	sinks := []engine.TradeSink{stats}

	if *logPath != "" {
		tlog, err := tradelog.New(*logPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open trade log")
		}
		defer tlog.Close()
		sinks = append(sinks, tlog)
	}

	events, err := replay.Load(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load historical data")
	}

	eng := engine.New(cfg.EngineParams(), sinks...)
	replay.Run(eng, events)

	report.Write(os.Stdout, stats)
}
