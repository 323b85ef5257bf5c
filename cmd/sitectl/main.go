// Command sitectl administers the CMS: user accounts, session cleanup and
// content synchronisation with the GitHub content repository.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/duynhne/cms-service/config"
	"github.com/duynhne/cms-service/internal/contentsync"
	"github.com/duynhne/cms-service/internal/store"
	"github.com/duynhne/cms-service/pkg/logger/zerolog"
)

// app holds lazily opened dependencies shared by all subcommands.
type app struct {
	cfg    *config.Config
	stores *store.Stores
	remote contentsync.Remote
	out    io.Writer
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) openStores(ctx context.Context) (*store.Stores, error) {
	if a.stores != nil {
		return a.stores, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.stores = s
	return s, nil
}

func (a *app) contentService() (*contentsync.Service, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if a.remote == nil {
		if err := cfg.Content.Validate(); err != nil {
			return nil, err
		}
		client := contentsync.NewGitHubClient(cfg.Content.GitHubToken)
		a.remote = contentsync.NewGitHubRemote(client, cfg.Content.Owner, cfg.Content.Repo, cfg.Content.Branch)
	}
	return contentsync.NewService(a.remote, cfg.Content.BasePath, cfg.Content.LocalRoot), nil
}

func (a *app) close() {
	if a.stores != nil {
		_ = a.stores.Close()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Administer the CMS service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.out == nil {
				a.out = cmd.OutOrStdout()
			}
			level := "warn"
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = "debug"
			}
			zerolog.Setup(level)
			return nil
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		usersCmd(a),
		sessionsCmd(a),
		contentCmd(a),
	)
	return root
}

func main() {
	a := &app{}
	defer a.close()

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		a.close()
		os.Exit(1)
	}
}
