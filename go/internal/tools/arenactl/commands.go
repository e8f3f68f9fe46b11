package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	grabbitv1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/api/grabbit/v1/grabbitv1connect"
	"github.com/mcdev12/arena/go/internal/game"
)

const (
	flagAPIURL   = "api-url"
	flagAdminKey = "admin-key"
	flagIdentity = "identity"
	flagTimeout  = "timeout"
)

// cli carries the resolved settings shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func (c *cli) client() grabbitv1connect.GrabbitServiceClient {
	httpClient := &http.Client{Timeout: c.v.GetDuration(flagTimeout)}
	return grabbitv1connect.NewGrabbitServiceClient(httpClient, c.v.GetString(flagAPIURL))
}

func (c *cli) identity() (string, error) {
	id := c.v.GetString(flagIdentity)
	if id == "" {
		return "", fmt.Errorf("--%s or ARENA_IDENTITY is required", flagIdentity)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	c := &cli{v: v}

	root := &cobra.Command{
		Use:          "arenactl",
		Short:        "Operate Grabbit sessions",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String(flagAPIURL, "http://localhost:8080", "game API base URL")
	pf.String(flagAdminKey, "", "admin key for create-game")
	pf.String(flagIdentity, "", "player identity (wallet address)")
	pf.Duration(flagTimeout, 10*time.Second, "request timeout")
	for _, name := range []string{flagAPIURL, flagAdminKey, flagIdentity, flagTimeout} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		c.createGameCmd(),
		c.sessionCmd(),
		c.sessionsCmd(),
		c.joinCmd(),
		c.actCmd(),
		c.claimCmd(),
	)
	return root
}

func (c *cli) createGameCmd() *cobra.Command {
	var startIn time.Duration
	cmd := &cobra.Command{
		Use:   "create-game <game-id>",
		Short: "Create a session from a configured preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := &grabbitv1.CreateGameRequest{GameId: args[0]}
			if startIn > 0 {
				at := time.Now().Add(startIn).UTC()
				msg.StartAt = &at
			}
			req := connect.NewRequest(msg)
			req.Header().Set(game.AdminKeyHeader, c.v.GetString(flagAdminKey))

			resp, err := c.client().CreateGame(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Msg.Session)
		},
	}
	cmd.Flags().DurationVar(&startIn, "start-in", 0, "start this long from now instead of after the preset countdown")
	return cmd
}

func (c *cli) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().GetSession(cmd.Context(), connect.NewRequest(&grabbitv1.GetSessionRequest{SessionId: args[0]}))
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Msg.Session)
		},
	}
}

func (c *cli) sessionsCmd() *cobra.Command {
	var limit int32
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions that have not finished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := c.client().ListOpenSessions(cmd.Context(), connect.NewRequest(&grabbitv1.ListOpenSessionsRequest{Limit: limit}))
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range resp.Msg.Sessions {
				fmt.Fprintf(out, "%s\t%s\t%s\t%d players\n", s.Id, s.GameId, s.Phase, len(s.Players))
			}
			return nil
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 50, "maximum sessions to list")
	return cmd
}

func (c *cli) joinCmd() *cobra.Command {
	var meta string
	cmd := &cobra.Command{
		Use:   "join <session-id>",
		Short: "Join a session as --identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := c.identity()
			if err != nil {
				return err
			}
			msg := &grabbitv1.JoinRequest{SessionId: args[0], Identity: identity}
			if meta != "" {
				if !json.Valid([]byte(meta)) {
					return fmt.Errorf("--meta must be valid JSON")
				}
				msg.DisplayMeta = json.RawMessage(meta)
			}
			resp, err := c.client().Join(cmd.Context(), connect.NewRequest(msg))
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Msg.Player)
		},
	}
	cmd.Flags().StringVar(&meta, "meta", "", "display metadata as a JSON object")
	return cmd
}

func (c *cli) actCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "act <grab|slap|sneak> <session-id>",
		Short:     "Spend one action as --identity",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"grab", "slap", "sneak"},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := c.identity()
			if err != nil {
				return err
			}
			client := c.client()
			var call func(context.Context, *connect.Request[grabbitv1.ActionRequest]) (*connect.Response[grabbitv1.ActionResponse], error)
			switch strings.ToLower(args[0]) {
			case "grab":
				call = client.Grab
			case "slap":
				call = client.Slap
			case "sneak":
				call = client.Sneak
			default:
				return fmt.Errorf("unknown action %q, want grab, slap or sneak", args[0])
			}

			resp, err := call(cmd.Context(), connect.NewRequest(&grabbitv1.ActionRequest{SessionId: args[1], Identity: identity}))
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Msg.Outcome)
		},
	}
}

func (c *cli) claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <session-id>",
		Short: "Claim the prize of an ended session as --identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := c.identity()
			if err != nil {
				return err
			}
			resp, err := c.client().ClaimPrize(cmd.Context(), connect.NewRequest(&grabbitv1.ClaimPrizeRequest{SessionId: args[0], Identity: identity}))
			if err != nil {
				return err
			}
			if err := failure(resp.Msg.Status); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Msg.Receipt)
		},
	}
}

func failure(st grabbitv1.Status) error {
	if st.Success {
		return nil
	}
	return fmt.Errorf("%s: %s", st.Code, st.Message)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
