package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gameboxr/internal/deck"
	"gameboxr/internal/logging"
	"gameboxr/pkg/models"

	"github.com/urfave/cli/v3"
)

const help = "commands: r <0-5> rate, w wishlist, s skip, retry, q quit"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	return newApp(os.Stdin, os.Stdout).Run(context.Background(), os.Args)
}

func newApp(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "deck",
		Usage: "Swipe through the discovery feed from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api",
				Value: "http://localhost:3000/api",
				Usage: "Base URL of the discovery API",
			},
			&cli.StringFlag{
				Name:  "token",
				Value: os.Getenv("GAMEBOXR_TOKEN"),
				Usage: "Bearer token; without one the feed is anonymous and ratings are rejected",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level for background errors",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return play(ctx, c, in, out)
		},
		Commands: []*cli.Command{
			{
				Name:  "ratings",
				Usage: "List your stored ratings, newest first",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listRatings(ctx, c, out)
				},
			},
		},
	}
}

func play(ctx context.Context, c *cli.Command, in io.Reader, out io.Writer) error {
	logger, err := logging.New(c.String("log-level"), false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := deck.NewAPIClient(c.String("api"), c.String("token"), nil)
	d := deck.New(client, client, deck.Options{
		Logger: logger,
		OnEvent: func(e deck.Event) {
			switch e.Type {
			case deck.EventWriteFailed:
				fmt.Fprintf(out, "! saving %q failed (%v), type retry to resend\n", e.Request.Title, e.Err)
			case deck.EventFetchFailed:
				fmt.Fprintf(out, "! loading page %d failed: %v\n", e.Page, e.Err)
			}
		},
	})

	if err := d.Load(ctx); err != nil {
		return err
	}
	defer d.Wait()

	fmt.Fprintln(out, help)
	scanner := bufio.NewScanner(in)
	for {
		card, ok := d.Current()
		if !ok {
			if d.NoMoreItems() {
				fmt.Fprintln(out, "no more games")
				return nil
			}
			// a prefetch is still running
			d.Wait()
			continue
		}
		fmt.Fprint(out, render(card))
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		quit, err := handle(ctx, d, strings.Fields(scanner.Text()), out)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

func handle(ctx context.Context, d *deck.Deck, args []string, out io.Writer) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}

	var err error
	switch args[0] {
	case "r":
		if len(args) != 2 {
			return false, errors.New("usage: r <0-5>")
		}
		stars, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return false, fmt.Errorf("invalid star count %q", args[1])
		}
		err = d.Rate(ctx, stars)
	case "w":
		err = d.Wishlist(ctx)
	case "s":
		err = d.Skip()
	case "retry":
		fmt.Fprintf(out, "resending %d rating(s)\n", d.RetryFailed(ctx))
		return false, nil
	case "q":
		return true, nil
	default:
		return false, errors.New(help)
	}
	if err != nil {
		return false, err
	}

	// no exit animation in a terminal
	return false, d.ExitComplete(ctx)
}

func render(g models.GameSummary) string {
	var b strings.Builder
	b.WriteString("\n" + g.Title)
	if year := g.ReleaseYear(); year != nil {
		fmt.Fprintf(&b, " (%d)", *year)
	}
	if g.TotalRating != nil {
		fmt.Fprintf(&b, "  %.0f/100", *g.TotalRating)
	}
	b.WriteString("\n")
	if len(g.Platforms) > 0 {
		b.WriteString("  " + strings.Join(g.Platforms, ", ") + "\n")
	}
	if len(g.Genres) > 0 {
		b.WriteString("  " + strings.Join(g.Genres, ", ") + "\n")
	}
	return b.String()
}

func listRatings(ctx context.Context, c *cli.Command, out io.Writer) error {
	client := deck.NewAPIClient(c.String("api"), c.String("token"), nil)
	ratings, err := client.Ratings(ctx)
	if err != nil {
		return err
	}
	for _, r := range ratings {
		switch {
		case r.Status == models.StatusWishlist:
			fmt.Fprintf(out, "%-8s %s\n", "wishlist", r.Title)
		case r.Stars != nil:
			fmt.Fprintf(out, "%-8s %s\n", strings.Repeat("*", *r.Stars), r.Title)
		default:
			fmt.Fprintf(out, "%-8s %s\n", "rated", r.Title)
		}
	}
	return nil
}
