package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "session":
		sessionCmd(apiURL, args)
	case "subscribe":
		subscribeCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Session Simulator - Development tool for exercising the auth API

USAGE:
  simulator <command> [options]

COMMANDS:
  session    Register a user and walk it through login, refresh and logout
  subscribe  Create fake users that subscribe to a channel
  help       Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Run the full session lifecycle once
  simulator session

  # Also request a password reset link for the new user
  simulator session --forgot

  # Give the channel "ada" 25 new subscribers
  simulator subscribe --channel=ada --count=25`)
}

func sessionCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	forgot := fs.Bool("forgot", false, "Request a password reset link after logout")
	fs.Parse(args)

	fmt.Println("=== Session Simulator: Full Lifecycle ===")
	fmt.Println()

	if err := runSession(os.Stdout, NewAPIClient(apiURL), NewCredentials("sim"), *forgot); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=== Done ===")
}

type sessionStep struct {
	name string
	fn   func() error
}

// runSession drives one client through every session step and checks that
// the access cookie stops working after logout.
func runSession(out io.Writer, client *APIClient, creds Credentials, forgot bool) error {
	steps := []sessionStep{
		{"Fetching CSRF token", client.FetchCSRF},
		{"Registering " + creds.Username, func() error {
			_, err := client.RegisterUser(creds)
			return err
		}},
		{"Logging in", func() error {
			_, err := client.Login(creds)
			return err
		}},
		{"Fetching current user", func() error {
			user, err := client.CurrentUser()
			if err != nil {
				return err
			}
			if user.Username != creds.Username {
				return fmt.Errorf("got user %q", user.Username)
			}
			return nil
		}},
		{"Refreshing access token", client.Refresh},
		{"Logging out", client.Logout},
		{"Checking session is gone", func() error {
			_, err := client.CurrentUser()
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Status == http.StatusUnauthorized {
				return nil
			}
			if err == nil {
				return errors.New("still authenticated after logout")
			}
			return err
		}},
	}
	if forgot {
		steps = append(steps, sessionStep{"Requesting reset link", func() error {
			return client.ForgotPassword(creds.Email)
		}})
	}

	for _, s := range steps {
		fmt.Fprintf(out, "%-28s", s.name+"...")
		if err := s.fn(); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Fprintln(out, "OK")
	}
	return nil
}

func subscribeCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("subscribe", flag.ExitOnError)
	channel := fs.String("channel", "", "Username of the channel to subscribe to (required)")
	count := fs.Int("count", 10, "Number of fake subscribers to create")
	fs.Parse(args)

	if *channel == "" {
		fmt.Println("Error: --channel is required")
		os.Exit(1)
	}
	if *count < 1 {
		fmt.Println("Error: --count must be at least 1")
		os.Exit(1)
	}

	fmt.Println("=== Session Simulator: Subscribers ===")
	fmt.Println()

	total, err := runSubscribe(os.Stdout, apiURL, *channel, *count)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Channel %s now has %d subscribers\n", *channel, total)
}

// runSubscribe registers count users that subscribe to the channel and
// returns the resulting subscriber count.
func runSubscribe(out io.Writer, apiURL, channelName string, count int) (int64, error) {
	lookup := NewAPIClient(apiURL)
	channel, err := lookup.GetChannel(channelName)
	if err != nil {
		return 0, fmt.Errorf("failed to find channel: %w", err)
	}
	fmt.Fprintf(out, "Found channel %s (id: %d, subscribers: %d)\n", channel.Username, channel.ID, channel.SubscriberCount)

	for i := 0; i < count; i++ {
		client := NewAPIClient(apiURL)
		creds := NewCredentials("sub")

		if err := client.FetchCSRF(); err != nil {
			return 0, err
		}
		if _, err := client.RegisterUser(creds); err != nil {
			return 0, err
		}
		if err := client.Subscribe(channel.ID); err != nil {
			return 0, err
		}
		fmt.Fprintf(out, "  [%d/%d] %s subscribed\n", i+1, count, creds.Username)
	}

	channel, err = lookup.GetChannel(channelName)
	if err != nil {
		return 0, err
	}
	return channel.SubscriberCount, nil
}
