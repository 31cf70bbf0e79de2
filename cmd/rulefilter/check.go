package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/rulefilter/rule"
)

func newCheckCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a rule and print its canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.loadRule(cmd)
			if err != nil {
				return err
			}

			if path := c.v.GetString("msgpack-out"); path != "" {
				data, err := rule.MarshalMsgpack(n)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("failed to write msgpack: %w", err)
				}
			}

			data, err := rule.Marshal(n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(data))
			fmt.Fprintln(out, n.String())
			return nil
		},
	}

	addRuleFlags(cmd)
	cmd.Flags().String("msgpack-out", "", "Also write the rule as MessagePack to this file")
	return cmd
}
