package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"funfriday-client/internal/app"
	"funfriday-client/internal/domain"
	"funfriday-client/internal/transport/ws"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewJoinCmd joins a party and immediately enters live play.
func NewJoinCmd(configPath, server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "join <party-id>",
		Short: "Join a party and play",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			userID, err := s.identity().Load()
			if err != nil {
				return err
			}
			if userID == "" {
				return fmt.Errorf("not logged in; run `funfriday login <name>` first")
			}
			if err := s.api().JoinParty(cmd.Context(), args[0], userID); err != nil {
				return err
			}
			return runSession(cmd.Context(), s, args[0], cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}
}

// NewPlayCmd enters live play for a party already joined (or created) by the
// local player.
func NewPlayCmd(configPath, server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play <party-id>",
		Short: "Play a live quiz session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSettings(*configPath, *server)
			return runSession(cmd.Context(), s, args[0], cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}
}

// runSession wires the session controller to the realtime channel, the
// terminal renderer, and the keyboard, then blocks until the session ends.
func runSession(ctx context.Context, s settings, partyID string, out io.Writer, in io.Reader) error {
	userID, err := s.identity().Load()
	if err != nil {
		return err
	}
	if userID == "" {
		// No identity: observe events without sending commands.
		s.log.Warn().Msg("not logged in; joining as observer")
	}

	client := s.api()
	dial := func(ctx context.Context, partyID, userID string) (app.Realtime, error) {
		return ws.Dial(ctx, s.wsURL, partyID, userID, s.log)
	}

	controller := app.NewController(domain.SessionContext{PartyID: partyID, UserID: userID}, dial, client, s.log)
	controller.OnLobbyRedirect(func() {
		fmt.Fprintln(out, "Back to the lobby. Run `funfriday parties` to find the next game.")
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots, unsubscribe := controller.Subscribe()
	defer unsubscribe()

	lines := readLines(in)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return controller.Run(ctx)
	})
	g.Go(func() error {
		r := newRenderer(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-snapshots:
				if !ok {
					return nil
				}
				r.render(snap)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				handleInput(controller, line, out)
			}
		}
	})

	return g.Wait()
}

// readLines feeds keyboard input through a channel so the intent loop can
// also observe cancellation. The scanner goroutine itself only exits on EOF;
// for a terminal session that is process exit, which is fine for a CLI.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}

// handleInput maps one input line to a user intent: a choice number selects,
// "submit" sends the answer, "start" starts the game (creator only).
// Rejected intents print why but never end the session.
func handleInput(controller *app.Controller, line string, out io.Writer) {
	switch {
	case line == "":
	case line == "start":
		if err := controller.StartGame(); err != nil {
			fmt.Fprintf(out, "cannot start: %v\n", err)
		}
	case line == "submit", line == "s":
		if err := controller.Submit(); err != nil {
			fmt.Fprintf(out, "cannot submit: %v\n", err)
		}
	default:
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "type a choice number, 'submit', or 'start'\n")
			return
		}
		snap := controller.Snapshot()
		if snap.Question == nil || n < 1 || n > len(snap.Question.Choices) {
			fmt.Fprintf(out, "no such choice: %d\n", n)
			return
		}
		if err := controller.SelectChoice(snap.Question.Choices[n-1]); err != nil {
			fmt.Fprintf(out, "cannot select: %v\n", err)
		}
	}
}
