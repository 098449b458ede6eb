// Command tashodb is a small CLI wrapping the tashodb storage engine, for
// ad hoc inspection and scripting against a database directory.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed into the engine via tashodb.Options, never through
//     a global slog configuration
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tashodb"
	"tashodb/internal/logging"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelWarn)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "tashodb",
		Short: "Inspect and script against a tashodb database directory",
	}
	rootCmd.PersistentFlags().String("dir", "./db", "database directory")
	rootCmd.PersistentFlags().Int("chunk-size", 8192, "chunk size used when creating a new database")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(
		insertCmd(logger),
		getCmd(logger),
		queryCmd(logger),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cmd *cobra.Command, logger *slog.Logger) (*tashodb.Database, error) {
	dir, _ := cmd.Flags().GetString("dir")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	opts := tashodb.DefaultOptions()
	opts.ChunkSize = chunkSize
	opts.Logger = logger
	return tashodb.Open(dir, opts)
}

func insertCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <table> <json-value>",
		Short: "Insert a record, generating its id unless --id or --uuid is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			v, err := decodeJSONValue(args[1])
			if err != nil {
				return fmt.Errorf("decode value: %w", err)
			}

			id, _ := cmd.Flags().GetString("id")
			useUUID, _ := cmd.Flags().GetBool("uuid")

			key := tashodb.AutoKey()
			switch {
			case useUUID:
				key = tashodb.StringKey(uuid.Must(uuid.NewRandom()).String())
			case id != "":
				key = tashodb.StringKey(id)
			}

			table := db.Table(args[0])
			doc, err := table.Insert(key, v)
			if err != nil {
				return err
			}
			if err := table.Commit(); err != nil {
				return err
			}
			fmt.Println(doc.ID.String())
			return nil
		},
	}
	cmd.Flags().String("id", "", "explicit string id")
	cmd.Flags().Bool("uuid", false, "generate a random UUID id instead of the engine's default token")
	return cmd
}

func getCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print the record stored under id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			doc, ok, err := db.Table(args[0]).Get(tashodb.StringKey(args[1]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no record with id %q", args[1])
			}
			return printValue(doc.Value)
		},
	}
}

func queryCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <table> <field> <value>",
		Short: "Print every record whose field equals value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			literal, err := decodeJSONLeaf(args[2])
			if err != nil {
				return fmt.Errorf("decode value: %w", err)
			}

			docs := db.Table(args[0]).Query(tashodb.Field{Name: args[1], Op: tashodb.Eq, Literal: literal})
			for _, doc := range docs {
				if err := printValue(doc.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// decodeJSONValue parses a JSON object into a *tashodb.Map.
func decodeJSONValue(s string) (*tashodb.Map, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	m := tashodb.NewMap()
	for k, v := range raw {
		leaf, err := jsonToLeaf(v)
		if err != nil {
			return nil, err
		}
		m.Set(k, leaf)
	}
	return m, nil
}

// decodeJSONLeaf parses a single JSON scalar for use as a query literal.
func decodeJSONLeaf(s string) (any, error) {
	var raw any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	return jsonToLeaf(raw)
}

func jsonToLeaf(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T; nested objects are not supported on the command line", v)
	}
}

func printValue(v *tashodb.Map) error {
	out := make(map[string]any, v.Len())
	v.Range(func(key string, val any) bool {
		out[key] = val
		return true
	})
	enc, err := json.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
