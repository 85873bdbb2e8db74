// Package cli implements the agent-playbook CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/agent-playbook/internal/config"
	"github.com/rcliao/agent-playbook/internal/store"
)

var (
	configFile string
	formatFlag string
	verbose    bool

	cfg *config.Config
	log = logrus.New()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agent-playbook",
	Short: "Evolving strategy playbooks for AI agents",
	Long: "Stores distilled strategy bullets in named sections, applies delta batches " +
		"produced by an agent, and renders the playbook as prompt context.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentPreRunE = loadConfig

	f := RootCmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "Config file (default: ./config.yaml or ~/.agent-playbook/config.yaml)")
	f.String("backend", "", "Storage backend: file or sqlite")
	f.StringP("path", "d", "", "Playbook directory (file) or database path (sqlite)")
	f.StringP("playbook", "p", "", "Playbook name (default: default)")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	f.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

func loadConfig(cmd *cobra.Command, args []string) error {
	v := config.New(configFile)
	f := RootCmd.PersistentFlags()
	v.BindPFlag("backend", f.Lookup("backend"))
	v.BindPFlag("path", f.Lookup("path"))
	v.BindPFlag("playbook", f.Lookup("playbook"))
	v.BindPFlag("log_level", f.Lookup("log-level"))

	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	log.WithFields(logrus.Fields{
		"backend":  cfg.Backend,
		"path":     cfg.Path,
		"playbook": cfg.Playbook,
	}).Debug("config loaded")

	switch formatFlag {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("invalid format %q (use json, yaml or text)", formatFlag)
	}
	return nil
}

func openStore() (store.Store, error) {
	return store.Open(cfg.Backend, cfg.Path)
}

func playbookLog() *logrus.Entry {
	return log.WithField("playbook", cfg.Playbook)
}

// printOut writes v in the selected format. text renders the text format;
// when nil, text falls back to json.
func printOut(v any, text func() string) {
	switch {
	case formatFlag == "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			exitErr("encode yaml", err)
		}
		fmt.Print(string(b))
	case formatFlag == "text" && text != nil:
		fmt.Println(text())
	default:
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
