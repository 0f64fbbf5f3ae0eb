package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named server remotes",
	GroupID: "system",
	// Only the local profile file is touched, so no client is needed.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, rawURL := args[0], args[1]
		if err := checkRemoteURL(rawURL); err != nil {
			return err
		}
		r := Remote{URL: rawURL}
		r.Token, _ = cmd.Flags().GetString("token")
		r.GRPCAddr, _ = cmd.Flags().GetString("grpc")
		r.NATSURL, _ = cmd.Flags().GetString("nats")

		err := updateRemotes(func(c *RemotesConfig) error {
			c.Remotes[name] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, rawURL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(c *RemotesConfig) error { return c.drop(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(c *RemotesConfig) error { return c.activate(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all remotes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), redactedRemotes(cfg))
		}
		printRemoteList(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [<name>]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		name, r, err := cfg.resolve(name)
		if err != nil {
			return err
		}
		printRemote(cmd.OutOrStdout(), name, r, name == cfg.Active)
		return nil
	},
}

// redactedRemotes is cfg with every token shortened, for --json.
func redactedRemotes(cfg RemotesConfig) RemotesConfig {
	out := RemotesConfig{Active: cfg.Active, Remotes: make(map[string]Remote, len(cfg.Remotes))}
	for name, r := range cfg.Remotes {
		r.Token = redactToken(r.Token, false)
		out.Remotes[name] = r
	}
	return out
}

func printRemoteList(w io.Writer, cfg RemotesConfig) {
	if len(cfg.Remotes) == 0 {
		fmt.Fprintln(w, "no remotes configured")
		return
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tURL\tGRPC\tNATS\tTOKEN")
	for _, name := range names {
		r := cfg.Remotes[name]
		mark := "  "
		if name == cfg.Active {
			mark = "* "
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n", mark, name, r.URL, r.GRPCAddr, r.NATSURL, redactToken(r.Token, false))
	}
	tw.Flush()
}

func printRemote(w io.Writer, name string, r Remote, active bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if active {
		name += " (active)"
	}
	fields := [][2]string{
		{"name", name},
		{"url", r.URL},
		{"grpc_addr", r.GRPCAddr},
		{"nats_url", r.NATSURL},
		{"token", redactToken(r.Token, true)},
	}
	for _, f := range fields {
		if f[1] != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", f[0], f[1])
		}
	}
}

func init() {
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("grpc", "", "gRPC address for --transport grpc")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for gc watch")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteUseCmd, remoteListCmd, remoteShowCmd)
}
