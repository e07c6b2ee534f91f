package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

var debugRedisURL string

// RedisDebugCmd returns the redis-debug command for inspecting shared
// state.
func RedisDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redis-debug",
		Short: "Debug and inspect Redis data structures",
		Long: `Debug tooling for inspecting the shared state in Redis.

This command provides operators with tools to:
- Inspect room records and client bindings
- List the due-timer queue with human-readable deadlines
- Check per-room tick locks
- Inject synthetic queue events into the events stream`,
	}

	cmd.PersistentFlags().StringVar(&debugRedisURL, "redis", "redis://localhost:6379", "Redis connection URL")

	cmd.AddCommand(redisDebugRoomCmd())
	cmd.AddCommand(redisDebugQueueCmd())
	cmd.AddCommand(redisDebugLockCmd())
	cmd.AddCommand(redisDebugInjectCmd())

	return cmd
}

// createDebugClient creates a Redis client from the --redis flag.
func createDebugClient(ctx context.Context) (*redisutil.Client, logging.Logger, error) {
	logger := logging.NewLoggerFromConfig(logging.Config{
		Level:  "info",
		Format: "text",
		Async:  false,
	})

	client, err := redisutil.NewClient(ctx, redisutil.ClientConfig{
		URL:        debugRedisURL,
		MaxRetries: 3,
		PoolSize:   5,
	})
	if err != nil {
		return nil, logger, fmt.Errorf("failed to connect to Redis at %s: %w", debugRedisURL, err)
	}
	return client, logger, nil
}

func redisDebugRoomCmd() *cobra.Command {
	var (
		roomID     string
		clientID   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "room",
		Short: "Inspect a room record or a client binding",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, logger, err := createDebugClient(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			rooms := store.New(logger, client)

			if clientID != "" {
				boundRoom, err := rooms.Binding(ctx, clientID)
				if err != nil {
					return err
				}
				if boundRoom == "" {
					return fmt.Errorf("client not bound: %s", clientID)
				}
				ttl, err := rooms.BindingTTL(ctx, clientID)
				if err != nil {
					return err
				}
				fmt.Printf("Client: %s\nRoom:   %s\nTTL:    %s\n", clientID, boundRoom, formatTTL(ttl))
				return nil
			}

			if roomID == "" {
				return fmt.Errorf("one of --room or --client is required")
			}

			r, err := rooms.GetRoom(ctx, roomID)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(r, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Room:   %s\n", r.ID)
			fmt.Printf("State:  %s\n", r.State)
			fmt.Printf("Host:   %s\n", deref(r.Host))
			fmt.Printf("Guest:  %s\n", deref(r.Guest))
			fmt.Printf("Turn:   %s (ends %s)\n", r.Data.Turn, formatDeadline(r.Data.TurnEndsAt))
			fmt.Printf("Game ends: %s\n", formatDeadline(r.Data.GameEndsAt))
			fmt.Printf("Ticks:  %d\n", r.Data.Ticks)
			return nil
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "Room ID to inspect")
	cmd.Flags().StringVar(&clientID, "client", "", "Client ID whose binding to inspect")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func redisDebugQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List the due-timer queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, logger, err := createDebugClient(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			entries, err := queue.New(logger, client).Entries(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("due-timer queue is empty")
				return nil
			}

			now := time.Now()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROOM\tDUE AT\tIN")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.RoomID, e.DueAt.Format(time.RFC3339Nano), e.DueAt.Sub(now).Round(time.Millisecond))
			}
			return w.Flush()
		},
	}

	return cmd
}

func redisDebugLockCmd() *cobra.Command {
	var roomID string

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect a room's tick lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, _, err := createDebugClient(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			key := client.KB().TickLockKey(roomID)
			holder, err := client.Get(ctx, key).Result()
			if redisutil.IsNotFound(err) {
				fmt.Printf("room %s is unlocked\n", roomID)
				return nil
			}
			if err != nil {
				return err
			}
			ttl, err := client.TTL(ctx, key).Result()
			if err != nil {
				return err
			}
			fmt.Printf("Room:   %s\nHolder: %s\nTTL:    %s\n", roomID, holder, formatTTL(ttl))
			return nil
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "Room ID (required)")
	_ = cmd.MarkFlagRequired("room")

	return cmd
}

func redisDebugInjectCmd() *cobra.Command {
	var (
		roomID   string
		clientID string
		presence string
		action   string
		data     string
	)

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject a synthetic queue event into the events stream",
		Long: `Inject a synthetic queue event into the events stream.

Builds the realtime provider's envelope shape for a room's control
channel and appends it to the stream the workers consume. Useful for
exercising a deployment without a realtime provider attached.

Examples:
  worker-node redis-debug inject --room r1 --client alice --presence enter
  worker-node redis-debug inject --room r1 --client alice --action START_GAME
  worker-node redis-debug inject --room r1 --client alice --action CHECK_BOX --data 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, logger, err := createDebugClient(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			env, err := buildInjectEnvelope(client.KB().ControlChannel(roomID), clientID, presence, action, data)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(env)
			if err != nil {
				return err
			}

			publisher := redisutil.NewStreamsPublisher(logger, client, client.KB().EventsStreamKey(), 0)
			if err := publisher.Publish(ctx, payload); err != nil {
				return err
			}
			fmt.Printf("injected %s event for room %s\n", env.Source, roomID)
			return nil
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "Room ID (required)")
	cmd.Flags().StringVar(&clientID, "client", "", "Client ID (required)")
	cmd.Flags().StringVar(&presence, "presence", "", "Presence action: enter|leave")
	cmd.Flags().StringVar(&action, "action", "", "Client action name (e.g. START_GAME)")
	cmd.Flags().StringVar(&data, "data", "", "Action payload")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}

func buildInjectEnvelope(channel, clientID, presence, action, data string) (*transport.Envelope, error) {
	now := time.Now().UnixMilli()

	switch {
	case presence != "" && action != "":
		return nil, fmt.Errorf("--presence and --action are mutually exclusive")
	case presence != "":
		code := 0
		switch presence {
		case "enter":
			code = transport.PresenceEnter
		case "leave":
			code = transport.PresenceLeave
		default:
			return nil, fmt.Errorf("unknown presence action %q", presence)
		}
		return &transport.Envelope{
			Source:  transport.SourcePresence,
			Channel: channel,
			Presence: []transport.PresenceEntry{{
				ClientID:  clientID,
				Timestamp: now,
				Action:    code,
			}},
		}, nil
	case action != "":
		return &transport.Envelope{
			Source:  transport.SourceMessage,
			Channel: channel,
			Messages: []transport.MessageEntry{{
				ClientID:  clientID,
				Timestamp: now,
				Name:      action,
				Data:      data,
			}},
		}, nil
	default:
		return nil, fmt.Errorf("one of --presence or --action is required")
	}
}

func formatTTL(ttl time.Duration) string {
	switch ttl {
	case store.NoExpiry:
		return "none"
	case store.Missing:
		return "missing"
	default:
		return ttl.String()
	}
}

func formatDeadline(unixSeconds int64) string {
	if unixSeconds < 0 {
		return "unset"
	}
	return time.Unix(unixSeconds, 0).Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return "<empty>"
	}
	return *s
}
