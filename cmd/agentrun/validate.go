package main

import (
	"fmt"
	"strings"

	"github.com/sovereignos/agentrun/internal/runner"
	"github.com/spf13/cobra"
)

var validateInput string

var validateCmd = &cobra.Command{
	Use:   "validate <agent.yaml>",
	Short: "Check an agent definition and input without calling the model",
	Long: `Loads the agent definition, validates the input JSON against its
input_schema and prints the filled prompt. No API key is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input-json", "i", "{}", "JSON string of input data for the agent")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	prepared, err := runner.New(runner.Options{Progress: out}).Prepare(args[0], validateInput)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nFilled prompt (model %s):\n", prepared.Agent.LLMConfig.Model)
	fmt.Fprintln(out, prepared.Prompt)

	if len(prepared.Unmatched) > 0 {
		fmt.Fprintf(out, "\n⚠️  Unmatched placeholders: %s\n", strings.Join(prepared.Unmatched, ", "))
	}
	fmt.Fprintln(out, "\n✅ Agent definition and input are valid")
	return nil
}
