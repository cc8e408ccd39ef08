package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/deepwide/pkg/events"
	"github.com/go-go-golems/deepwide/pkg/research"
	"github.com/go-go-golems/deepwide/pkg/session"
)

func NewChatCmd() *cobra.Command {
	var (
		deep      float64
		wide      float64
		model     string
		mcpFlags  []string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "chat [query]",
		Short: "Run a streaming research turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			mcp, err := parseMCPFlags(mcpFlags)
			if err != nil {
				return err
			}

			router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
			if err != nil {
				return err
			}
			defer func() { _ = router.Close() }()

			publisher := events.NewPublisherManager()
			publisher.SubscribePublisher(events.TopicUI, router.Publisher)

			manager, st, provider, err := newManager(session.WithPublisher(publisher))
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			router.AddHandler("print-status", events.TopicUI, func(msg *message.Message) error {
				defer msg.Ack()
				var n events.Notification
				if err := json.Unmarshal(msg.Payload, &n); err != nil {
					return nil
				}
				if n.Type == events.NotificationStreamStatus {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "... %s\n", n.Message)
				}
				return nil
			})

			engine := research.NewEngine(manager,
				research.WithBaseURL(viper.GetString("api-url")),
				research.WithAuthProvider(provider),
				research.WithEnginePublisher(publisher),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				defer cancel()
				return router.Run(ctx)
			})
			eg.Go(func() error {
				defer cancel()
				<-router.Running()

				if err := manager.Initialize(ctx); err != nil {
					return err
				}
				if sessionID != "" {
					if err := manager.SwitchSession(ctx, sessionID); err != nil {
						return err
					}
				}

				report, err := engine.Send(ctx, query, research.Params{
					Deep:  deep,
					Wide:  wide,
					Model: model,
				}, mcp)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			})

			err = eg.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&deep, "deep", 0.5, "research depth in [0,1]")
	cmd.Flags().Float64Var(&wide, "wide", 0.5, "research breadth in [0,1]")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	cmd.Flags().StringArrayVar(&mcpFlags, "mcp", nil, "enabled service capabilities, e.g. --mcp search=web,news")
	cmd.Flags().StringVar(&sessionID, "session", "", "run the turn against an existing session id")

	return cmd
}

func parseMCPFlags(flags []string) (research.MCPConfig, error) {
	mcp := research.MCPConfig{}
	for _, f := range flags {
		service, tools, found := strings.Cut(f, "=")
		if !found || service == "" {
			return nil, errors.Errorf("invalid --mcp value %q, expected service=tool1,tool2", f)
		}
		for _, tool := range strings.Split(tools, ",") {
			if tool = strings.TrimSpace(tool); tool != "" {
				mcp[service] = append(mcp[service], tool)
			}
		}
	}
	return mcp, nil
}
