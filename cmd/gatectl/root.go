package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"gatelog/internal/config"
	"gatelog/internal/model"
	"gatelog/internal/queue"
	"gatelog/internal/roster"
	"gatelog/internal/store"
	"gatelog/internal/tracker"
)

// app holds the services opened for one command run.
type app struct {
	cfg     config.App
	repo    store.Backend
	db      *store.DB
	redis   *store.Redis
	queue   queue.Queue
	tracker *tracker.Service
	roster  *roster.Service
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}

type rootOptions struct {
	driver  string
	dsn     string
	migrate bool
	in      io.ReadCloser
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Administer the gatelog entry/exit store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver (pgx, sqlite3); defaults to DATABASE_DRIVER")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database url; defaults to DATABASE_URL")

	root.AddCommand(
		newMigrateCmd(opts),
		newPeopleCmd(opts),
		newBadgeCmd(opts),
		newEntriesCmd(opts),
		newExitCmd(opts),
		newSyncCmd(opts),
	)
	return root
}

func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if o.driver != "" {
		cfg.DatabaseDriver = o.driver
	}
	if o.dsn != "" {
		cfg.DatabaseURL = o.dsn
	}
	if cfg.DatabaseDriver == store.DriverMemory {
		return nil, fmt.Errorf("gatectl needs a persistent store, DATABASE_DRIVER is %q", cfg.DatabaseDriver)
	}
	repo, db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.AutoMigrate || o.migrate)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, repo: repo, db: db}

	var pub tracker.Publisher
	if cfg.QueueBackend == "redis" {
		a.redis = store.NewRedis(cfg.RedisAddr)
		a.queue = queue.NewRedisQueue(a.redis.Client, cfg.QueueKey)
		pub = a.queue
	}
	loc := cfg.Location()
	a.tracker = tracker.NewService(repo, pub, loc)
	a.roster = roster.NewService(repo, pub, loc)
	return a, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.migrate = true
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// confirm asks a yes/no question on the terminal; anything but y/yes is no.
func confirm(in io.ReadCloser, out io.Writer, question string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: question + " [y/N]: ",
		Stdin:  in,
		Stdout: out,
	})
	if err != nil {
		return false, err
	}
	defer rl.Close()
	line, err := rl.Readline()
	if err != nil {
		if err == io.EOF || err == readline.ErrInterrupt {
			return false, nil
		}
		return false, err
	}
	return isYes(line), nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(model.DateLayout + " " + model.TimeLayout)
}

func (o *rootOptions) stdin(cmd *cobra.Command) io.ReadCloser {
	if o.in != nil {
		return o.in
	}
	return io.NopCloser(cmd.InOrStdin())
}
