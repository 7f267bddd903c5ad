package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gissleh/tmi"
)

var flagUsername = flag.String("username", "", "The login name; empty connects anonymously")
var flagToken = flag.String("token", "", "The OAuth token, with or without the oauth: prefix")
var flagServer = flag.String("server", tmi.DefaultServerAddr, "The chat gateway to connect to")
var flagChannels = flag.String("channels", "", "Comma-separated channels to join on connect")
var flagVerbose = flag.Bool("verbose", false, "Log client internals to stderr")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()

	logger := zerolog.Nop()
	if *flagVerbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	client := tmi.New(ctx, tmi.Config{
		Username:   *flagUsername,
		Token:      *flagToken,
		ServerAddr: *flagServer,
		Logger:     logger,
	})

	client.On(tmi.EventAll, func(event *tmi.Event) {
		if event.Command == tmi.EventDisconnected {
			os.Exit(0)
		}

		j, err := json.MarshalIndent(event, "", "    ")
		if err != nil {
			return
		}

		fmt.Println(string(j))
	})

	if _, err := client.Connect(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to connect: %s", err)
		os.Exit(1)
	}

	target := ""
	for _, channel := range strings.Split(*flagChannels, ",") {
		if channel == "" {
			continue
		}

		state, err := client.Join(ctx, channel)
		if err != nil {
			log.Println("Failed to join", channel, "-", err)
			continue
		}

		target = state.Name
	}

	go func() {
		exitSignal := make(chan os.Signal, 1)
		signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)

		<-exitSignal

		client.Destroy()
		os.Exit(0)
	}()

	// Input: "/target #channel" switches the active channel, "/join" and
	// "/part" manage membership, anything else goes to the active channel
	// as chat (slash-commands included).
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		command, rest, _ := strings.Cut(line, " ")
		switch command {
		case "/target":
			target = rest
			log.Println("Set target channel", rest)
		case "/join":
			state, err := client.Join(ctx, rest)
			if err != nil {
				log.Println("Failed to join", rest, "-", err)
				continue
			}
			target = state.Name
		case "/part":
			channel := rest
			if channel == "" {
				channel = target
			}
			client.Part(channel)
		default:
			if target == "" {
				log.Println("No target channel, use /join or /target first")
				continue
			}

			if _, err := client.Say(ctx, target, line); err != nil {
				log.Println("Send failed:", err)
			}
		}
	}
}
