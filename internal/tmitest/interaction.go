// Package tmitest provides a scripted in-memory server for exercising the
// client against exact protocol exchanges.
package tmitest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var errClosed = errors.New("tmitest: interaction closed")

// An Interaction is a simulated server conversation. It implements the
// client's transport, so a test installs it via the config's Dial hook and
// drives the client through the scripted lines.
type Interaction struct {
	Strict  bool
	Lines   []InteractionLine
	Log     []string
	Failure *InteractionFailure

	wg   sync.WaitGroup
	once sync.Once

	recvCh     chan string
	fromClient chan string
	stop       chan struct{}
}

// InteractionLine is part of an interaction: a line sent to the client, a
// line expected from it, or a callback run between the two. A trailing "*"
// in Client matches any suffix.
type InteractionLine struct {
	Client   string
	Server   string
	Callback func() error
}

// InteractionFailure signifies a test failure.
type InteractionFailure struct {
	Index  int
	Result string
	IOErr  error
	CBErr  error
}

// Dial starts the script goroutine. It satisfies the transport interface
// and never fails.
func (interaction *Interaction) Dial(ctx context.Context) error {
	interaction.recvCh = make(chan string, 16)
	interaction.fromClient = make(chan string, 64)
	interaction.stop = make(chan struct{})

	lines := make([]InteractionLine, len(interaction.Lines))
	copy(lines, interaction.Lines)

	interaction.wg.Add(1)
	go func() {
		defer interaction.wg.Done()

		for i := 0; i < len(lines); i++ {
			line := lines[i]

			if line.Server != "" {
				select {
				case interaction.recvCh <- line.Server:
				case <-interaction.stop:
					interaction.Failure = &InteractionFailure{
						Index: i, IOErr: errClosed,
					}
					return
				case <-time.After(time.Second * 2):
					interaction.Failure = &InteractionFailure{
						Index: i, IOErr: errors.New("tmitest: client not reading"),
					}
					return
				}
			} else if line.Client != "" {
				var input string
				select {
				case input = <-interaction.fromClient:
				case <-interaction.stop:
					interaction.Failure = &InteractionFailure{
						Index: i, IOErr: errClosed,
					}
					return
				case <-time.After(time.Second * 2):
					interaction.Failure = &InteractionFailure{
						Index: i, IOErr: errors.New("tmitest: timed out waiting for client"),
					}
					return
				}

				match := line.Client
				success := false

				if strings.HasSuffix(match, "*") {
					success = strings.HasPrefix(input, match[:len(match)-1])
				} else {
					success = match == input
				}

				interaction.Log = append(interaction.Log, input)

				if !success {
					if !interaction.Strict {
						i--
						continue
					}

					interaction.Failure = &InteractionFailure{
						Index: i, Result: input,
					}
					return
				}
			} else if line.Callback != nil {
				err := line.Callback()
				if err != nil {
					interaction.Failure = &InteractionFailure{
						Index: i, CBErr: err,
					}
					return
				}
			}
		}
	}()

	return nil
}

// Send records a line from the client for the script to match against.
func (interaction *Interaction) Send(line string) error {
	select {
	case <-interaction.stop:
		return errClosed
	default:
	}

	select {
	case interaction.fromClient <- line:
		return nil
	default:
		// Script is done and the buffer is full; drop like a dead socket.
		return nil
	}
}

// Recv returns the inbound line channel. It is closed by Close.
func (interaction *Interaction) Recv() <-chan string {
	return interaction.recvCh
}

// Close ends the conversation; the client observes a disconnect.
func (interaction *Interaction) Close() error {
	interaction.once.Do(func() {
		close(interaction.stop)
		close(interaction.recvCh)
	})

	return nil
}

// Wait waits for the script to run to completion or failure. It's safe to
// check Failure after that.
func (interaction *Interaction) Wait() {
	interaction.wg.Wait()
}
