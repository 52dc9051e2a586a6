package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wakeword-data/wakeword-data/internal/config"
)

var (
	cfgFile string
	envFile string

	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "wakeword-server",
	Short: "Wake word training data collection server",
	Long: `wakeword-server accepts labeled wake word recordings over HTTP,
validates their labels and stores them in a bucket for model training.

Start the server:
  wakeword-server

Start with custom settings:
  wakeword-server --listen 0.0.0.0:8080 --storage-dir /var/lib/wakeword

Use environment variables:
  WAKEWORD_LISTEN=0.0.0.0:8080 WAKEWORD_STORAGE_DRIVER=memory wakeword-server`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wakeword-server %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Build Date: %s\n", BuildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.Default()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.Flags().String("listen", defaults.Server.Listen, "Server listen address")
	rootCmd.Flags().String("admin-listen", defaults.Server.AdminListen, "Admin listen address for /healthz and /metrics (empty = disabled)")
	rootCmd.Flags().Duration("read-timeout", defaults.Server.ReadTimeout, "HTTP read timeout")
	rootCmd.Flags().Duration("write-timeout", defaults.Server.WriteTimeout, "HTTP write timeout")

	rootCmd.Flags().String("storage-driver", defaults.Storage.Driver, "Storage driver (localfs, memory)")
	rootCmd.Flags().String("storage-dir", defaults.Storage.Dir, "Root directory for the localfs driver")
	rootCmd.Flags().String("bucket", defaults.Storage.Bucket, "Bucket name")

	rootCmd.Flags().Int64("max-content-length", defaults.Upload.MaxContentLength, "Maximum upload size in bytes")
	rootCmd.Flags().String("trace-header", defaults.Upload.TraceHeader, "Request header used as the sample identifier")
	rootCmd.Flags().String("identifier", defaults.Upload.Identifier, "Fallback identifier mode (timestamp, uuid)")

	rootCmd.Flags().StringSlice("positive", defaults.WakeWords.Positive, "Accepted wake words")
	rootCmd.Flags().StringSlice("negative", defaults.WakeWords.Negative, "Accepted decoy phrases")
	rootCmd.Flags().String("reference-file", "", "YAML reference tables (empty = built in)")

	rootCmd.Flags().String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", defaults.Logging.Format, "Log format (json, text)")

	bindFlags()

	rootCmd.AddCommand(versionCmd)
}

var bindings = []struct {
	key  string
	flag string
	env  string
}{
	{"server.listen", "listen", "WAKEWORD_LISTEN"},
	{"server.admin_listen", "admin-listen", "WAKEWORD_ADMIN_LISTEN"},
	{"server.read_timeout", "read-timeout", "WAKEWORD_READ_TIMEOUT"},
	{"server.write_timeout", "write-timeout", "WAKEWORD_WRITE_TIMEOUT"},
	{"storage.driver", "storage-driver", "WAKEWORD_STORAGE_DRIVER"},
	{"storage.dir", "storage-dir", "WAKEWORD_STORAGE_DIR"},
	{"storage.bucket", "bucket", "WAKEWORD_BUCKET"},
	{"upload.max_content_length", "max-content-length", "WAKEWORD_MAX_CONTENT_LENGTH"},
	{"upload.trace_header", "trace-header", "WAKEWORD_TRACE_HEADER"},
	{"upload.identifier", "identifier", "WAKEWORD_IDENTIFIER"},
	{"wake_words.positive", "positive", "WAKEWORD_POSITIVE"},
	{"wake_words.negative", "negative", "WAKEWORD_NEGATIVE"},
	{"reference.file", "reference-file", "WAKEWORD_REFERENCE_FILE"},
	{"logging.level", "log-level", "WAKEWORD_LOG_LEVEL"},
	{"logging.format", "log-format", "WAKEWORD_LOG_FORMAT"},
}

func bindFlags() {
	for _, b := range bindings {
		flag := rootCmd.Flags().Lookup(b.flag)
		if flag == nil {
			continue
		}
		_ = viper.BindPFlag(b.key, flag)
	}
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			fmt.Fprintln(os.Stderr, "Loaded environment from:", envFile)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WAKEWORD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, b := range bindings {
		_ = viper.BindEnv(b.key, b.env)
	}

	defaults := config.Default()
	viper.SetDefault("server.listen", defaults.Server.Listen)
	viper.SetDefault("server.admin_listen", defaults.Server.AdminListen)
	viper.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	viper.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	viper.SetDefault("storage.driver", defaults.Storage.Driver)
	viper.SetDefault("storage.dir", defaults.Storage.Dir)
	viper.SetDefault("storage.bucket", defaults.Storage.Bucket)
	viper.SetDefault("upload.max_content_length", defaults.Upload.MaxContentLength)
	viper.SetDefault("upload.trace_header", defaults.Upload.TraceHeader)
	viper.SetDefault("upload.identifier", defaults.Upload.Identifier)
	viper.SetDefault("wake_words.positive", defaults.WakeWords.Positive)
	viper.SetDefault("wake_words.negative", defaults.WakeWords.Negative)
	viper.SetDefault("reference.file", "")
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)

	bindFlags()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stringList reads a list setting that may arrive as a YAML sequence or a
// comma separated environment value.
func stringList(key string) []string {
	if s, ok := viper.Get(key).(string); ok {
		return config.SplitList(s)
	}
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		out = append(out, config.SplitList(item)...)
	}
	return out
}
