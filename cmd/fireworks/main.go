package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Fireworks/internal/audio"
	"Fireworks/internal/client"
	"Fireworks/internal/firework"
	"Fireworks/internal/game"
	"Fireworks/internal/server"
	"Fireworks/internal/tui"
	"Fireworks/internal/wire"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
)

func main() {
	relay := flag.String("relay", "", "relay address (host:port or ws:// URL); empty runs offline")
	room := flag.String("room", "default", "relay room to join")
	codecName := flag.String("codec", "msgpack", "relay codec: json, proto or msgpack")
	tuningPath := flag.String("tuning", "configs/fireworks.json", "path to firework tuning JSON")
	fps := flag.Int("fps", 30, "frames per second")
	mute := flag.Bool("mute", false, "disable explosion sounds")
	logPath := flag.String("log", "", "write logs to this file (logs are discarded by default)")
	flag.Parse()

	if err := run(*relay, *room, *codecName, *tuningPath, *fps, *mute, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, "fireworks:", err)
		os.Exit(1)
	}
}

func run(relay, room, codecName, tuningPath string, fps int, mute bool, logPath string) error {
	// the terminal belongs to tcell while running
	log.SetOutput(io.Discard)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	tuning, err := server.LoadTuning(tuningPath, firework.DefaultTuning())
	if err != nil {
		log.Printf("tuning: %v (using defaults)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pub    game.Publisher
		events <-chan wire.LaunchEvent
		status = func() string { return "offline" }
	)
	if relay != "" {
		codec, err := wire.CodecByName(codecName)
		if err != nil {
			return err
		}
		peer, err := client.NewPeer(relay, room, codec)
		if err != nil {
			return err
		}
		defer peer.Close()
		go peer.Run(ctx)
		pub, events = peer, peer.Events()
		status = func() string {
			if peer.Connected() {
				return "room " + room
			}
			return "connecting to " + relay
		}
	}

	var player *audio.Player
	if !mute {
		rng := game.NewRand()
		format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
		sink := audio.NewSpeakerSink(format.SampleRate)
		defer sink.Close()
		player = audio.NewPlayer(sink, audio.ExplosionBuffer(format, rng), audio.DefaultOptions(), rng)
		defer player.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.EnableMouse()
	screen.HideCursor()

	opts := tui.Options{FPS: fps, Events: events, Status: status}
	regOpts := game.RegistryOptions{Tuning: tuning}
	if player != nil {
		opts.Listener = player.SetListener
		regOpts.Audio = player
	}
	viewer := tui.New(screen, opts)
	regOpts.Target = viewer
	reg := game.NewRegistry(regOpts)
	defer reg.Clear()
	viewer.Bind(game.NewSpawner(reg, pub, nil))

	viewer.Run(ctx)
	return nil
}
