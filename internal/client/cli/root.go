package cli

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/spf13/cobra"
)

// Runner is what the command tree needs from an App.
type Runner interface {
	Run(ctx context.Context) error
	Login(ctx context.Context) error
	Register(ctx context.Context) error
	Resume(ctx context.Context) error
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	Close() error
}

// AppFactory builds a Runner once flags and config are resolved.
type AppFactory func(ctx context.Context, cfg *config.Config, log logging.Logger) (Runner, error)

// DefaultAppFactory wires a real App.
func DefaultAppFactory(ctx context.Context, cfg *config.Config, log logging.Logger) (Runner, error) {
	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// NewRootCommand builds the shelfkeeper command tree.
func NewRootCommand(newApp AppFactory) *cobra.Command {
	var (
		app Runner
		log logging.Logger = logging.Nop{}
	)

	run := func(fn func(Runner, context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			defer func() {
				if err := app.Close(); err != nil {
					log.Warn(cmd.Context(), "cli.close.fail", "err", err)
				}
			}()
			return fn(app, cmd.Context())
		}
	}

	root := &cobra.Command{
		Use:          "shelfkeeper",
		Short:        "Bookshelf client: session login and account tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

			app, err = newApp(cmd.Context(), cfg, log)
			return err
		},
		RunE: run(Runner.Run),
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{Use: "login", Short: "Log in with email and password", Args: cobra.NoArgs, RunE: run(Runner.Login)},
		&cobra.Command{Use: "register", Short: "Create an account", Args: cobra.NoArgs, RunE: run(Runner.Register)},
		&cobra.Command{Use: "resume", Short: "Restore the stored session", Args: cobra.NoArgs, RunE: run(Runner.Resume)},
		&cobra.Command{Use: "logout", Short: "Forget the stored session", Args: cobra.NoArgs, RunE: run(Runner.Logout)},
		&cobra.Command{Use: "reset-password", Short: "Reset a forgotten password", Args: cobra.NoArgs, RunE: run(Runner.ForgotPassword)},
	)
	return root
}

// Execute runs the command tree with the real App.
func Execute(ctx context.Context) error {
	return NewRootCommand(DefaultAppFactory).ExecuteContext(ctx)
}
