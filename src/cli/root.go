package cli

import (
	"context"
	"fmt"
	"os"

	"syndrrel/src/settings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootFlags struct {
	envFile    string
	dataDir    string
	logDir     string
	schemaFile string
	debug      bool
	verbose    bool
}

// app holds what every command needs once flags are parsed
type app struct {
	flags  rootFlags
	args   *settings.Arguments
	logger *zap.SugaredLogger
}

// NewRootCommand builds the syndrrel command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "syndrrel",
		Short: "Document bundles with declared relationships",
		Long: `syndrrel loads document bundles described by a schema file and
resolves the relationships declared in it.

Examples:

  syndrrel load --schema music.yaml --seed music.json
  syndrrel query --schema music.yaml --bundle bands --with albums
  syndrrel query --schema music.yaml --bundle albums --with band=bandId --where 'year > 1970'
  syndrrel inspect --schema music.yaml
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.envFile, "env", ".env", "Path to a .env file")
	flags.StringVar(&a.flags.dataDir, "datadir", "", "Directory to store bundle files")
	flags.StringVar(&a.flags.logDir, "logdir", "", "Directory to store log files")
	flags.StringVar(&a.flags.schemaFile, "schema", "", "YAML schema file")
	flags.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&a.flags.verbose, "verbose", false, "Enable verbose logging")

	rootCmd.AddCommand(newLoadCommand(a))
	rootCmd.AddCommand(newQueryCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))
	return rootCmd
}

// setup resolves settings (defaults, .env, environment, then flags) and
// builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	args, err := settings.Load(a.flags.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("datadir") {
		args.DataDir = a.flags.dataDir
	}
	if flags.Changed("logdir") {
		args.LogDir = a.flags.logDir
	}
	if flags.Changed("schema") {
		args.SchemaFile = a.flags.schemaFile
	}
	if flags.Changed("debug") {
		args.Debug = a.flags.debug
	}
	if flags.Changed("verbose") {
		args.Verbose = a.flags.verbose
	}

	logger, err := NewLogger(args)
	if err != nil {
		return err
	}
	a.args = args
	a.logger = logger

	if args.Verbose {
		logger.Infow("SyndrRel starting",
			"dataDir", args.DataDir,
			"logDir", args.LogDir,
			"schema", args.SchemaFile)
	}
	return nil
}

func (a *app) open(ctx context.Context) (*session, error) {
	return openSession(ctx, a.args, a.logger)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
