package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"timecast/internal/client"
	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
)

var opts struct {
	URL         string
	Opener      string
	Count       int
	Heartbeat   time.Duration
	PongTimeout time.Duration
	LogLevel    string
}

func main() {
	a := &cli.App{
		Name:  "timecast-probe",
		Usage: "connect to a timecast server and print the frames it sends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Value:       "ws://127.0.0.1:5000/",
				EnvVars:     []string{"TIMECAST_URL"},
				Destination: &opts.URL,
			},
			&cli.StringFlag{
				Name:        "opener",
				Usage:       "first message sent to the server",
				Value:       "ping",
				Destination: &opts.Opener,
			},
			&cli.IntFlag{
				Name:        "count",
				Usage:       "stop after this many timestamps, 0 runs until interrupted",
				Destination: &opts.Count,
			},
			&cli.DurationFlag{
				Name:        "heartbeat",
				Usage:       "send ping at this interval, 0 disables",
				Destination: &opts.Heartbeat,
			},
			&cli.DurationFlag{
				Name:        "pong-timeout",
				Usage:       "give up when a ping is not answered within this time, 0 waits forever",
				Value:       60 * time.Second,
				Destination: &opts.PongTimeout,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Value:       "info",
				EnvVars:     []string{"LOG_LEVEL"},
				Destination: &opts.LogLevel,
			},
		},
		Action: run,
	}
	if err := a.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(_ *cli.Context) error {
	if err := logger.Init(types.LogConf{Level: opts.LogLevel}); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("url", opts.URL).Msg(">>> Probe: connecting...")
	received := 0
	last := time.Now()
	err := client.Probe(ctx, client.ProbeOptions{
		URL:              opts.URL,
		Opener:           opts.Opener,
		HeartbeatEvery:   opts.Heartbeat,
		PongTimeout:      opts.PongTimeout,
		HandshakeTimeout: 5 * time.Second,
	}, func(f client.Frame) bool {
		if f.Pong {
			logger.Debug().Msg("pong")
			return true
		}
		received++
		fmt.Println(f.Payload)
		logger.Debug().Int("n", received).Dur("gap", f.ReceivedAt.Sub(last)).Msg("frame")
		last = f.ReceivedAt
		return opts.Count == 0 || received < opts.Count
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Int("frames", received).Msg("Probe finished.")
	return nil
}
