package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/pkgdiff"
	"github.com/aweris/pkgdiff/internal/compression"
	"github.com/aweris/pkgdiff/internal/source"
)

var rootCmd = &cobra.Command{
	Use:          "pkgdiff",
	Short:        "Compare published package versions",
	Long:         "Fetch two versions of a package from a registry and show what changed between them.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/pkgdiff/config.yaml)")
	flags.Float64("similarity-threshold", pkgdiff.DefaultSimilarityThreshold, "minimum similarity for rename detection, 0 to 1")
	flags.Int("workers", pkgdiff.DefaultWorkers, "requests handled in parallel")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("local-dir", "", "serve archives from this directory as source \"local\"")
	flags.String("oci-repository", "", "serve archives from this OCI repository as source \"oci\"")

	_ = viper.BindPFlag("similarity_threshold", flags.Lookup("similarity-threshold"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("local_dir", flags.Lookup("local-dir"))
	_ = viper.BindPFlag("oci_repository", flags.Lookup("oci-repository"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PKGDIFF")
	viper.AutomaticEnv()
	viper.SetDefault("npm_registry", source.DefaultNPMRegistry)
	viper.SetDefault("crates_registry", source.DefaultCratesRegistry)
	viper.SetDefault("max_archive_size", int64(512<<20))
	viper.SetDefault("http_timeout", 60*time.Second)
	viper.SetDefault("http_addr", ":8080")

	_ = viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pkgdiff")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "pkgdiff")
	}
	return ".pkgdiff"
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log_level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().
		Logger()
}

// newSession wires every configured source into a session.
func newSession(logger zerolog.Logger) (*pkgdiff.Session, error) {
	httpOpts := []source.HTTPOption{source.WithTimeout(viper.GetDuration("http_timeout"))}

	dec, err := compression.New(compression.WithMaxSize(viper.GetInt64("max_archive_size")))
	if err != nil {
		return nil, err
	}

	opts := []pkgdiff.Option{
		pkgdiff.WithLogger(logger),
		pkgdiff.WithDecompressor(dec),
		pkgdiff.WithSimilarityThreshold(viper.GetFloat64("similarity_threshold")),
		pkgdiff.WithWorkers(viper.GetInt("workers")),
		pkgdiff.WithSource("npm", source.NewNPM(viper.GetString("npm_registry"), httpOpts...)),
		pkgdiff.WithSource("crates", source.NewCrates(viper.GetString("crates_registry"), httpOpts...)),
	}
	if dir := viper.GetString("local_dir"); dir != "" {
		opts = append(opts, pkgdiff.WithSource("local", source.NewDir(dir)))
	}
	if repo := viper.GetString("oci_repository"); repo != "" {
		oci, err := newOCI(repo)
		if err != nil {
			_ = dec.Close()
			return nil, err
		}
		opts = append(opts, pkgdiff.WithSource("oci", oci))
	}

	s, err := pkgdiff.New(opts...)
	if err != nil {
		_ = dec.Close()
		return nil, err
	}
	return s, nil
}

func newOCI(repo string) (*source.OCI, error) {
	var opts []source.OCIOption
	if user := viper.GetString("oci_username"); user != "" {
		opts = append(opts, source.WithAuth(source.BasicAuth{
			Username: user,
			Password: viper.GetString("oci_password"),
		}))
	}
	if viper.GetBool("oci_insecure") {
		opts = append(opts, source.WithInsecure())
	}
	return source.NewOCI(repo, opts...)
}

// withSession runs fn with a session and closes it afterwards.
func withSession(fn func(s *pkgdiff.Session) error) (err error) {
	s, err := newSession(newLogger())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
