package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/dependency"
	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/shared/cmdutils"
	"github.com/crystaldolphin/waypoint/internal/stream"
)

var (
	agentMessage string
	agentIntent  string
	agentSession string
	agentLat     float64
	agentLon     float64
	agentURL     string
	agentLogs    bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Ask the assistant from the terminal",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentIntent, "type", "t", string(agent.IntentPlace), "Query type: restaurant, place or trip")
	agentCmd.Flags().StringVarP(&agentSession, "session", "s", "", "Conversation ID (generated when empty)")
	agentCmd.Flags().Float64Var(&agentLat, "lat", 0, "Your latitude")
	agentCmd.Flags().Float64Var(&agentLon, "lon", 0, "Your longitude")
	agentCmd.Flags().StringVar(&agentURL, "url", "", "Talk to a running server, e.g. http://localhost:8000")
	agentCmd.Flags().BoolVar(&agentLogs, "logs", false, "Show runtime logs")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// asker runs one query and returns the conversation id it ran under.
type asker func(ctx context.Context, req agent.QueryRequest, out *cmdutils.Printer) (string, error)

func runAgent(_ *cobra.Command, _ []string) error {
	if !agentLogs && !verbose {
		setupLogger(slog.LevelWarn)
	}

	ask, err := newAsker()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if agentMessage != "" {
		return askOnce(ctx, ask, agentMessage)
	}
	return runInteractive(ctx, ask)
}

func newAsker() (asker, error) {
	if agentURL != "" {
		return remoteAsker(strings.TrimRight(agentURL, "/")), nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return nil, err
	}
	return localAsker(container.Service()), nil
}

func askOnce(ctx context.Context, ask asker, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	out := cmdutils.NewPrinter(os.Stdout)
	id, err := ask(ctx, agent.QueryRequest{
		ConversationID: agentSession,
		Intent:         agentIntent,
		Query:          text,
		Lat:            agentLat,
		Lon:            agentLon,
	}, out)
	out.Done()
	if id != "" {
		agentSession = id
	}
	return err
}

// runInteractive reads lines from stdin and asks each one in the same
// conversation until EOF, an exit command or a signal.
func runInteractive(ctx context.Context, ask asker) error {
	fmt.Printf("%s Interactive mode, %s questions (type 'exit' or Ctrl+C to quit)\n\n", cmdutils.Logo, agentIntent)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		if err := askOnce(ctx, ask, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func localAsker(svc *agent.Service) asker {
	return func(ctx context.Context, req agent.QueryRequest, out *cmdutils.Printer) (string, error) {
		run, err := svc.Query(ctx, req)
		if err != nil {
			return "", err
		}
		return run.ConversationID, stream.Forward(run.Events(), stream.WithContext(ctx, out))
	}
}

// remoteAsker posts to a running server and renders its NDJSON stream.
func remoteAsker(baseURL string) asker {
	client := &http.Client{}
	return func(ctx context.Context, req agent.QueryRequest, out *cmdutils.Printer) (string, error) {
		body, err := json.Marshal(map[string]any{
			"id":         req.ConversationID,
			"query_type": req.Intent,
			"query":      req.Query,
			"lat":        req.Lat,
			"lon":        req.Lon,
		})
		if err != nil {
			return "", err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/query", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", fmt.Errorf("query %s: %w", baseURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", remoteError(resp)
		}
		id := resp.Header.Get("X-Conversation-Id")
		return id, stream.Forward(events(stream.Decode(resp.Body)), out)
	}
}

// events drops the error half of a decoded stream, logging it.
func events(seq iter.Seq2[schema.Event, error]) iter.Seq[schema.Event] {
	return func(yield func(schema.Event) bool) {
		for ev, err := range seq {
			if err != nil {
				slog.Warn("Stream read failed", "err", err)
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server: %s (%s)", envelope.Error.Message, envelope.Error.Code)
	}
	return fmt.Errorf("server: %s", resp.Status)
}
