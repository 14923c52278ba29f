// Command swiper is an interactive terminal client. It drives a local
// presentation queue against a running feed server: one opportunity at a
// time, accept/reject/skip, with background refill when the queue runs low.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/swipe4care/opportunity-feed/internal/client"
	"github.com/swipe4care/opportunity-feed/internal/db"
	"github.com/swipe4care/opportunity-feed/internal/logger"
	"github.com/swipe4care/opportunity-feed/internal/queue"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:3001", "feed server base URL")
	userID := flag.String("user", "default", "user id to swipe as")
	flag.Parse()

	logger.Init(&logger.Config{Level: "warn"})
	log := logger.L()

	ctx := context.Background()
	api := client.New(*serverURL)
	ctrl := queue.New(api, api, *userID, queue.WithLogger(log))

	if err := ctrl.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load feed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Swiping as %q against %s\n", *userID, *serverURL)
	fmt.Println("Commands: [a]ccept  [r]eject  [s]kip to next load  [q]uit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		current, err := ctrl.Current()
		if errors.Is(err, queue.ErrDrained) {
			if !offerRefresh(ctx, scanner, api, ctrl) {
				break
			}
			continue
		}

		printCard(current)
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "a", "accept":
			decide(ctx, ctrl, db.DirectionAccept)
		case "r", "reject":
			decide(ctx, ctrl, db.DirectionReject)
		case "s", "skip":
			// skipping decides nothing; reload to get a fresh ordering
			ctrl.WaitRefill()
			if err := ctrl.Load(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			}
		case "q", "quit", "exit":
			printSummary(ctx, api, *userID)
			return
		default:
			fmt.Println("unknown command (a/r/s/q)")
		}
	}

	printSummary(ctx, api, *userID)
}

func decide(ctx context.Context, ctrl *queue.Controller, direction db.Direction) {
	decided, err := ctrl.Decide(ctx, direction)
	if err != nil {
		// cursor stays on the same item; the next command retries it
		fmt.Fprintf(os.Stderr, "decision not recorded: %v\n", err)
		return
	}
	fmt.Printf("%sed %q (%d left in queue)\n", direction, decided.Title, ctrl.Remaining())
}

// offerRefresh handles the drained state: optionally trigger a scrape on the
// server, then reload. Returns false when the user wants out.
func offerRefresh(ctx context.Context, scanner *bufio.Scanner, api *client.APIClient, ctrl *queue.Controller) bool {
	fmt.Println("No more opportunities. [f]etch new ones, [l]oad again, or [q]uit?")
	fmt.Print("> ")
	if !scanner.Scan() {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "f", "fetch":
		count, err := api.Scrape(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scrape failed: %v\n", err)
			return true
		}
		fmt.Printf("Fetched %d new opportunities.\n", count)
		fallthrough
	case "l", "load":
		if err := ctrl.Load(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
		}
		return true
	default:
		return false
	}
}

func printCard(o db.Opportunity) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("#%d  %s\n", o.ID, o.Title)
	fmt.Printf("%s | %s [%s]\n", o.Organization, o.Location, o.Category)
	fmt.Println(o.Description)
	if o.Requirements != "" {
		fmt.Printf("Requirements: %s\n", o.Requirements)
	}
	if o.Compensation != "" {
		fmt.Printf("Compensation: %s\n", o.Compensation)
	}
	if o.URL != "" {
		fmt.Printf("Apply: %s\n", o.URL)
	}
}

func printSummary(ctx context.Context, api *client.APIClient, userID string) {
	count, err := api.LikedCount(ctx, userID)
	if err != nil {
		return
	}
	fmt.Printf("You have %d liked opportunities.\n", count)
}
