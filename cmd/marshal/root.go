package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/marshal"
	"github.com/reoring/marshal/declare"
	"github.com/reoring/marshal/representation"
	"github.com/reoring/marshal/routes"
)

type options struct {
	schema  string
	data    string
	format  string
	debug   bool
	strict  bool
	verbose bool
	routes  []string
	baseURL string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "marshal",
		Short: "Marshal documents against a YAML schema declaration",
		Long: `marshal reads a JSON or YAML document and transforms it with a schema declared in YAML.

  output: internal -> external (serialize), keys in schema order
  input:  external -> internal (deserialize), required fields enforced`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&o.schema, "schema", "s", "", "schema declaration file (YAML)")
	pf.StringVarP(&o.data, "data", "d", "-", "document to marshal; - reads stdin")
	pf.StringVarP(&o.format, "format", "f", "json", "output format: json or yaml")
	pf.BoolVar(&o.debug, "debug", false, "indent JSON output and sort keys")
	pf.BoolVar(&o.strict, "strict", false, "reject JSON documents that repeat an object key")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log progress to stderr")
	pf.StringArrayVar(&o.routes, "route", nil, "named route for url fields, name=/pattern/{param} (repeatable)")
	pf.StringVar(&o.baseURL, "base-url", "", "base URL for url fields")
	_ = root.MarkPersistentFlagRequired("schema")

	root.AddCommand(
		directionCmd("output", "Serialize a document (internal -> external)", marshal.Output, o),
		directionCmd("input", "Deserialize a document (external -> internal)", marshal.Input, o),
	)
	return root
}

func directionCmd(use, short string, dir marshal.Direction, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, dir, o)
		},
	}
}

func run(cmd *cobra.Command, dir marshal.Direction, o *options) error {
	log := newLogger(cmd.ErrOrStderr(), o.verbose)

	out, err := outputRepresentation(o)
	if err != nil {
		return err
	}
	table, err := routeTable(o)
	if err != nil {
		return err
	}
	s, err := declare.ParseFile(o.schema, declare.WithResolver(table))
	if err != nil {
		return describe(err)
	}
	log.Debug().Str("schema", o.schema).Strs("keys", s.Keys()).Msg("schema loaded")

	raw, err := readData(cmd.InOrStdin(), o.data)
	if err != nil {
		return err
	}
	doc, err := inputRepresentation(o.data, raw, o.strict).Decode(raw)
	if err != nil {
		return err
	}

	result, err := marshal.Marshal(doc, doc, s, dir)
	if err != nil {
		return describe(err)
	}
	log.Debug().Str("direction", dir.String()).Msg("marshaled")

	b, err := out.Encode(result)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(b); err != nil {
		return err
	}
	if len(b) > 0 && b[len(b)-1] != '\n' {
		_, err = io.WriteString(cmd.OutOrStdout(), "\n")
	}
	return err
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(level).With().Timestamp().Logger()
}

func outputRepresentation(o *options) (representation.Representation, error) {
	switch strings.ToLower(o.format) {
	case "json":
		return representation.JSON{Debug: o.debug}, nil
	case "yaml", "yml":
		return representation.YAML{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want json or yaml)", o.format)
}

// inputRepresentation picks YAML for .yaml/.yml files and JSON otherwise.
func inputRepresentation(path string, raw []byte, strict bool) representation.Representation {
	js := representation.JSON{RejectDuplicateKeys: strict}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return representation.YAML{}
	case ".json":
		return js
	}
	if t := strings.TrimSpace(string(raw)); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		return js
	}
	return representation.YAML{}
}

func routeTable(o *options) (*routes.Table, error) {
	table := routes.New(routes.WithBaseURL(o.baseURL))
	noop := http.NotFoundHandler()
	for _, r := range o.routes {
		name, pattern, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --route %q (want name=/pattern)", r)
		}
		if err := table.Handle(name, http.MethodGet, pattern, noop); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func readData(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// describe renders marshaling errors as "code at path: message (cause)".
func describe(err error) error {
	me, ok := marshal.AsMarshallingError(err)
	if !ok {
		return err
	}
	path := me.Path
	if path == "" {
		path = "/"
	}
	if me.Cause != nil {
		return fmt.Errorf("%s at %s: %s (%v)", me.Code, path, me.Message, me.Cause)
	}
	return fmt.Errorf("%s at %s: %s", me.Code, path, me.Message)
}
