package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duynhne/cms-service/internal/contentsync"
)

func contentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Synchronise site content with the GitHub content repository",
	}
	cmd.AddCommand(
		contentPullCmd(a),
		contentPushCmd(a),
		contentDiffCmd(a),
		contentResolveCmd(a),
		contentHistoryCmd(a),
	)
	return cmd
}

func contentPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download every file under the content base path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.contentService()
			if err != nil {
				return err
			}
			n, err := svc.Pull(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pulled %d file(s)\n", n)
			return nil
		},
	}
}

func contentPushCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "push <remote-path> <local-file>",
		Short: "Create or update one remote file from a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			svc, err := a.contentService()
			if err != nil {
				return err
			}
			if message == "" {
				message = "Update " + args[0]
			}
			if err := svc.Push(cmd.Context(), args[0], content, message); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pushed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}

func contentDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <path>",
		Short: "Report whether the local and remote copies differ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.contentService()
			if err != nil {
				return err
			}
			d, err := svc.CheckForChanges(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			switch {
			case !d.HasChanges:
				fmt.Fprintf(a.out, "%s: in sync\n", args[0])
			case !d.RemoteExists:
				fmt.Fprintf(a.out, "%s: local only\n", args[0])
			case !d.LocalExists:
				fmt.Fprintf(a.out, "%s: remote only\n", args[0])
			default:
				fmt.Fprintf(a.out, "%s: differs (local %d bytes, remote %d bytes)\n", args[0], len(d.Local), len(d.Remote))
			}
			return nil
		},
	}
}

func contentResolveCmd(a *app) *cobra.Command {
	var (
		use    string
		merged string
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Settle a conflict by keeping local, remote or a merged file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := contentsync.ParseResolution(use)
			if err != nil {
				return err
			}
			var mergedContent []byte
			if merged != "" {
				if mergedContent, err = os.ReadFile(merged); err != nil {
					return err
				}
			}

			svc, err := a.contentService()
			if err != nil {
				return err
			}
			if err := svc.Resolve(cmd.Context(), args[0], res, mergedContent); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Resolved %s using %s\n", args[0], res)
			return nil
		},
	}
	cmd.Flags().StringVar(&use, "use", "", "Resolution: local, remote or merge (required)")
	cmd.Flags().StringVar(&merged, "merged", "", "File holding the merged content (with --use merge)")
	_ = cmd.MarkFlagRequired("use")
	return cmd
}

func contentHistoryCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "List commits that touched a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.contentService()
			if err != nil {
				return err
			}
			commits, err := svc.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(a.out).Encode(commits)
			}
			for _, c := range commits {
				sha := c.SHA
				if len(sha) > 7 {
					sha = sha[:7]
				}
				subject, _, _ := strings.Cut(c.Message, "\n")
				fmt.Fprintf(a.out, "%s %s %s %s\n", sha, c.Date.Format("2006-01-02"), c.Author, subject)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
