package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/client"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	authToken  string
	jsonOutput bool
	noColor    bool
	actor      string

	gcClient client.GateCheckClient
)

func defaultActor() string {
	if s := os.Getenv("GATECHECK_ACTOR"); s != "" {
		return s
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultHTTPURL() string {
	if s := os.Getenv("GATECHECK_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("GATECHECK_SERVER"); s != "" {
		return s
	}
	if a := activeRemoteGRPCAddr(); a != "" {
		return a
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("GATECHECK_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

// newClient builds the client for the selected transport.
func newClient() (client.GateCheckClient, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, authToken), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, authToken)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
	}
}

var rootCmd = &cobra.Command{
	Use:           "gc <command>",
	Short:         "Foreman console for phase transition gate checks",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		gcClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if gcClient != nil {
			gcClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token for the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor recorded on changes")

	rootCmd.AddGroup(
		&cobra.Group{ID: "checks", Title: "Gate checks:"},
		&cobra.Group{ID: "deficiencies", Title: "Deficiencies:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Gate checks
	rootCmd.AddCommand(transitionsCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(historyCmd)

	// Deficiencies
	rootCmd.AddCommand(deficiencyCmd)

	// Views
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rosterCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
