// Package main provides the CLI entry point for bitschema, a tool that
// compiles a declarative field schema into a deterministic bit layout and
// emits derived artifacts from it.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ran1979/bitschema"
	"github.com/ran1979/bitschema/codegen"
	"github.com/ran1979/bitschema/log"
	"github.com/ran1979/bitschema/schemafile"
	"github.com/ran1979/bitschema/version"
)

// Sentinel errors returned by the CLI's I/O boundary.
var (
	ErrReadInput   = errors.New("read input")
	ErrWriteOutput = errors.New("write output")
)

func main() {
	logCfg := log.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "bitschema",
		Short: "Compile a declarative field schema into a deterministic bit layout",
		Long: `bitschema compiles a schema document (YAML or JSON) describing a fixed set of
typed fields into a deterministic bit layout inside a single 64-bit word, and
emits derived artifacts from it: a JSON Schema, a human-readable bit-layout
table, or a generated Go record type with an Encode method and a Decode
function.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       buildVersionString(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			handler, err := logCfg.NewHandler(os.Stderr)
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(handler))

			return nil
		},
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	rootCmd.AddCommand(newJSONSchemaCommand(), newGenerateCommand(), newVisualizeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func buildVersionString() string {
	v := version.Version
	if v == "" {
		v = "dev"
	}

	return fmt.Sprintf("%s (revision %s, %s)", v, version.Revision, version.GoVersion)
}

// loadSchema reads path (or stdin, for "-"), loads it as a schema source
// document, validates it, and plans its bit layout. This is the common
// prelude to all three subcommands.
func loadSchema(path string) (*bitschema.Schema, []bitschema.FieldLayout, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}

	raw, err := schemafile.Load(data)
	if err != nil {
		return nil, nil, err
	}

	schema, err := bitschema.Validate(raw)
	if err != nil {
		return nil, nil, err
	}

	layouts, err := bitschema.Plan(schema)
	if err != nil {
		return nil, nil, err
	}

	return schema, layouts, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: stdin: %w", ErrReadInput, err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}

		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return nil
}

// jsonSchemaFlags holds CLI flag names for the jsonschema subcommand.
type jsonSchemaFlags struct {
	Title       string
	Description string
	ID          string
	Output      string
	Indent      string
}

// jsonSchemaConfig holds CLI flag values for the jsonschema subcommand.
type jsonSchemaConfig struct {
	Flags       jsonSchemaFlags
	Title       string
	Description string
	ID          string
	Output      string
	Indent      int
}

func newJSONSchemaConfig() *jsonSchemaConfig {
	return &jsonSchemaConfig{
		Flags: jsonSchemaFlags{
			Title:       "title",
			Description: "description",
			ID:          "id",
			Output:      "output",
			Indent:      "indent",
		},
	}
}

func (c *jsonSchemaConfig) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Title, c.Flags.Title, "", "schema title field (defaults to the schema's own name)")
	flags.StringVar(&c.Description, c.Flags.Description, "", "schema description field")
	flags.StringVar(&c.ID, c.Flags.ID, "", "schema $id field")
	flags.StringVarP(&c.Output, c.Flags.Output, "o", "-", "output file path (- for stdout)")
	flags.IntVar(&c.Indent, c.Flags.Indent, 2, "JSON indentation spaces")
}

func (c *jsonSchemaConfig) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.Title, c.Flags.Description, c.Flags.ID, c.Flags.Indent} {
		if err := cmd.RegisterFlagCompletionFunc(flag, noFileComp); err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	return nil
}

func (c *jsonSchemaConfig) newEmitter() *bitschema.JSONSchemaEmitter {
	var opts []bitschema.Option

	if c.Title != "" {
		opts = append(opts, bitschema.WithTitle(c.Title))
	}

	if c.Description != "" {
		opts = append(opts, bitschema.WithDescription(c.Description))
	}

	if c.ID != "" {
		opts = append(opts, bitschema.WithID(c.ID))
	}

	return bitschema.NewJSONSchemaEmitter(opts...)
}

func newJSONSchemaCommand() *cobra.Command {
	cfg := newJSONSchemaConfig()

	cmd := &cobra.Command{
		Use:           "jsonschema <schema-file>",
		Short:         "Emit a JSON Schema describing a schema's record shape",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runJSONSchema(cfg, args[0])
		},
	}

	cfg.RegisterFlags(cmd.Flags())

	if err := cfg.RegisterCompletions(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func runJSONSchema(cfg *jsonSchemaConfig, path string) error {
	schema, layouts, err := loadSchema(path)
	if err != nil {
		return err
	}

	out := cfg.newEmitter().Emit(schema, layouts)

	data, err := json.MarshalIndent(out, "", strings.Repeat(" ", cfg.Indent))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	data = append(data, '\n')

	return writeOutput(cfg.Output, data)
}

// generateFlags holds CLI flag names for the generate subcommand.
type generateFlags struct {
	Package string
	Output  string
}

// generateConfig holds CLI flag values for the generate subcommand.
type generateConfig struct {
	Flags   generateFlags
	Package string
	Output  string
}

func newGenerateConfig() *generateConfig {
	return &generateConfig{
		Flags:   generateFlags{Package: "package", Output: "output"},
		Package: "bitschemagen",
	}
}

func (c *generateConfig) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Package, c.Flags.Package, c.Package, "package clause of the generated Go file")
	flags.StringVarP(&c.Output, c.Flags.Output, "o", "-", "output file path (- for stdout)")
}

func (c *generateConfig) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	if err := cmd.RegisterFlagCompletionFunc(c.Flags.Package, noFileComp); err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Package, err)
	}

	return nil
}

func newGenerateCommand() *cobra.Command {
	cfg := newGenerateConfig()

	cmd := &cobra.Command{
		Use:           "generate <schema-file>",
		Short:         "Generate a Go record type implementing a schema's bit layout",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runGenerate(cfg, args[0])
		},
	}

	cfg.RegisterFlags(cmd.Flags())

	if err := cfg.RegisterCompletions(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func runGenerate(cfg *generateConfig, path string) error {
	schema, layouts, err := loadSchema(path)
	if err != nil {
		return err
	}

	src, err := codegen.NewEmitter(codegen.WithPackageName(cfg.Package)).Emit(schema, layouts)
	if err != nil {
		return err
	}

	return writeOutput(cfg.Output, src)
}

// visualizeFlags holds CLI flag names for the visualize subcommand.
type visualizeFlags struct {
	Format string
	Output string
}

// visualizeConfig holds CLI flag values for the visualize subcommand.
type visualizeConfig struct {
	Flags  visualizeFlags
	Format string
	Output string
}

func newVisualizeConfig() *visualizeConfig {
	return &visualizeConfig{
		Flags:  visualizeFlags{Format: "format", Output: "output"},
		Format: string(bitschema.RenderASCII),
	}
}

func (c *visualizeConfig) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Format, c.Flags.Format, c.Format,
		fmt.Sprintf("table format, one of: %s, %s", bitschema.RenderASCII, bitschema.RenderMarkdown))
	flags.StringVarP(&c.Output, c.Flags.Output, "o", "-", "output file path (- for stdout)")
}

func (c *visualizeConfig) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Format,
		cobra.FixedCompletions(
			[]string{string(bitschema.RenderASCII), string(bitschema.RenderMarkdown)},
			cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Format, err)
	}

	return nil
}

func newVisualizeCommand() *cobra.Command {
	cfg := newVisualizeConfig()

	cmd := &cobra.Command{
		Use:           "visualize <schema-file>",
		Short:         "Render a schema's bit layout as a human-readable table",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runVisualize(cfg, args[0])
		},
	}

	cfg.RegisterFlags(cmd.Flags())

	if err := cfg.RegisterCompletions(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func runVisualize(cfg *visualizeConfig, path string) error {
	_, layouts, err := loadSchema(path)
	if err != nil {
		return err
	}

	out := bitschema.Render(layouts, bitschema.RenderFormat(cfg.Format))

	return writeOutput(cfg.Output, []byte(out))
}
