// Command huml parses and canonically re-serializes HUML documents.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/huml-go/huml"
)

var (
	encodeFlag bool
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "huml <file>",
		Short: "Parse and canonically re-serialize HUML documents",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log parse diagnostics to stderr")
	root.Flags().BoolVar(&encodeFlag, "encode", false, "re-serialize to canonical HUML instead of printing JSON")
	return root
}

func run(cmd *cobra.Command, args []string) error {
	setupLogging()

	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	log.Debug().Str("file", path).Int("bytes", len(raw)).Msg("parsing document")

	doc, err := huml.Parse(raw)
	if err != nil {
		if pe, ok := err.(*huml.ParseError); ok {
			log.Error().
				Str("kind", pe.Kind.String()).
				Int("line", pe.Line).
				Int("column", pe.Column).
				Msg(pe.Message)
		}
		return err
	}

	if encodeFlag {
		out, err := huml.Serialize(doc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	rawJSON, err := toJSONRaw(doc.Root)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, rawJSON, "", "  "); err != nil {
		return err
	}
	fmt.Println(pretty.String())
	return nil
}

func setupLogging() {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// toJSONRaw renders a huml.Value as JSON text directly, emitting dict
// entries in their original huml.Dict order rather than going through a
// Go map (which json.Marshal would re-sort alphabetically).
func toJSONRaw(v huml.Value) (json.RawMessage, error) {
	switch v.Kind() {
	case huml.KindList:
		items, _ := v.AsList()
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := toJSONRaw(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case huml.KindDict:
		d, _ := v.AsDict()
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, e := range d.Entries() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := toJSONRaw(e.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		native, err := toJSONScalar(v)
		if err != nil {
			return nil, err
		}
		return json.Marshal(native)
	}
}

// toJSONScalar converts a non-List, non-Dict Value into a plain Go value
// suitable for json.Marshal.
func toJSONScalar(v huml.Value) (any, error) {
	switch v.Kind() {
	case huml.KindNull:
		return nil, nil
	case huml.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case huml.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case huml.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case huml.KindString:
		s, _ := v.AsString()
		return s, nil
	default:
		return nil, fmt.Errorf("huml: unknown value kind")
	}
}
