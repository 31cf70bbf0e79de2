package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugr-lab/rulefilter"
	"github.com/hugr-lab/rulefilter/internal/datelabel"
	"github.com/hugr-lab/rulefilter/rule"
)

const envPrefix = "RULEFILTER"

// cli carries the configuration shared by all commands.
type cli struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "rulefilter",
		Short:         "Filter tabular data with JSON boolean rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("implicit-and", false, "Accept a bare list of predicates as their conjunction")
	pf.String("now", "", "Resolve date labels against this date (YYYY-MM-DD) instead of today")

	root.AddCommand(
		newApplyCmd(c),
		newCheckCmd(c),
		newSQLCmd(c),
	)
	return root
}

// init binds flags and environment variables to viper, reads the optional
// config file and sets up logging.
func (c *cli) init(cmd *cobra.Command) error {
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := c.v.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (c *cli) clock() (func() time.Time, error) {
	s := c.v.GetString("now")
	if s == "" {
		return time.Now, nil
	}
	t, err := time.Parse(datelabel.ISOLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid --now: %w", err)
	}
	return func() time.Time { return t }, nil
}

func (c *cli) filterer() (*rulefilter.Filterer, error) {
	now, err := c.clock()
	if err != nil {
		return nil, err
	}
	return rulefilter.New(rulefilter.Config{
		Logger:      c.logger,
		Now:         now,
		ImplicitAnd: c.v.GetBool("implicit-and"),
	}), nil
}

func (c *cli) parseOptions() []rule.ParseOption {
	if c.v.GetBool("implicit-and") {
		return []rule.ParseOption{rule.WithImplicitAnd()}
	}
	return nil
}

// addRuleFlags registers the flags selecting the rule document.
func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().String("rule", "", "Rule as inline JSON")
	cmd.Flags().String("rule-file", "", "Rule file, JSON or MessagePack (.msgpack), - for stdin")
}

// loadRule reads the rule from --rule or --rule-file.
func (c *cli) loadRule(cmd *cobra.Command) (rule.Node, error) {
	inline, path := c.v.GetString("rule"), c.v.GetString("rule-file")

	switch {
	case inline != "" && path != "":
		return nil, fmt.Errorf("--rule and --rule-file are mutually exclusive")
	case inline != "":
		return rule.Parse([]byte(inline), c.parseOptions()...)
	case path == "":
		return nil, fmt.Errorf("a rule is required: use --rule or --rule-file")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		return rule.ParseMsgpack(data, c.parseOptions()...)
	}
	return rule.Parse(data, c.parseOptions()...)
}
