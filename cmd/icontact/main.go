// Command icontact calls the iContact API from the shell. Results are
// printed as JSON.
//
// Credentials come from flags, ICONTACT_* environment variables, a .env
// file or ~/.icontact/config.yaml. With --session-file the v1 login is
// cached between runs, optionally sealed with a key from "icontact key".
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	icontact "github.com/icontact-sdk/client-go"
	"github.com/icontact-sdk/client-go/credstore"
)

var version = "dev"

// app carries state shared by the subcommands of one run.
type app struct {
	cfg        Config
	v          *viper.Viper
	settings   *Settings
	log        *zap.Logger
	closeLog   func()
	configFile string
	envFile    string
}

func run(args []string, cfg Config) error {
	a := newApp(cfg)
	root := a.rootCommand()
	defer func() { a.closeLog() }()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newApp(cfg Config) *app {
	return &app{cfg: cfg, v: viper.New(), log: zap.NewNop(), closeLog: func() {}}
}

func newRootCommand(cfg Config) *cobra.Command {
	return newApp(cfg).rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cfg := a.cfg

	root := &cobra.Command{
		Use:           "icontact",
		Short:         "Call the iContact email-marketing API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(cfg.Stdin)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ~/.icontact/config.yaml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded into the environment")
	pf.String("api-key", "", "v1 application key")
	pf.String("shared-secret", "", "v1 application shared secret")
	pf.String("username", "", "account username")
	pf.String("password", "", "API application password")
	pf.String("base-url", "", "v1 API base URL")
	pf.String("app-id", "", "v2.2 application id")
	pf.String("v2-base-url", "", "v2.2 API base URL")
	pf.Int("retries", 5, "retry counter ceiling")
	pf.Duration("backoff", 0, "backoff unit between retries")
	pf.Duration("timeout", 0, "timeout of a single HTTP request")
	pf.Float64("rate-limit", 0, "client-side request rate per second (0 disables)")
	pf.String("session-file", "", "file that caches the v1 login between runs")
	pf.String("session-key", "", "key sealing the session file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")
	pf.String("log-file", "", "write logs to a rotated file instead of stderr")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.listsCommand(),
		a.listCommand(),
		a.campaignsCommand(),
		a.campaignCommand(),
		a.contactsCommand(),
		a.contactCommand(),
		a.contactSaveCommand(),
		a.subscribeCommand(),
		a.subscriptionsCommand(),
		a.customFieldsCommand(),
		a.messageCommand(),
		a.messageCreateCommand(),
		a.scheduleCommand(),
		a.statsCommand(),
		a.deliveryCommand(),
		a.keyCommand(),
		a.v2Command(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	s, err := loadSettings(a.v, cmd.Flags(), a.configFile, a.envFile)
	if err != nil {
		return err
	}
	a.settings = s

	log, closeLog, err := newLogger(s, a.cfg.Stderr)
	if err != nil {
		return err
	}
	a.log = log
	a.closeLog = closeLog
	if s.ConfigFile != "" {
		log.Debug("loaded config", zap.String("file", s.ConfigFile))
	}
	return nil
}

func (a *app) options(baseURL string) []icontact.Option {
	s := a.settings
	opts := []icontact.Option{
		icontact.WithLogger(a.log),
		icontact.WithRetries(s.Retries),
	}
	if baseURL != "" {
		opts = append(opts, icontact.WithBaseURL(baseURL))
	}
	if s.Backoff > 0 {
		opts = append(opts, icontact.WithBackoffUnit(s.Backoff))
	}
	if s.Timeout > 0 {
		opts = append(opts, icontact.WithTimeout(s.Timeout))
	}
	if s.RateLimit > 0 {
		opts = append(opts, icontact.WithRateLimit(s.RateLimit, 1))
	}
	return opts
}

func (a *app) sessionStore() (*credstore.File, error) {
	s := a.settings
	if s.SessionFile == "" {
		return nil, nil
	}
	var key *credstore.Key
	if s.SessionKey != "" {
		k, err := credstore.ParseKey(s.SessionKey)
		if err != nil {
			return nil, err
		}
		key = k
	}
	return credstore.NewFile(s.SessionFile, key), nil
}

func (a *app) client() (*icontact.Client, error) {
	s := a.settings
	if s.APIKey == "" {
		return nil, errors.New("an API key is required (--api-key or ICONTACT_API_KEY)")
	}

	opts := a.options(s.BaseURL)
	store, err := a.sessionStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, icontact.WithCredentialStore(store))
	}

	var passwordMD5 string
	if s.Password != "" {
		passwordMD5 = icontact.HashPassword(s.Password)
	}
	return icontact.New(s.APIKey, s.SharedSecret, s.Username, passwordMD5, opts...)
}

func (a *app) v2Client() (*icontact.V2Client, error) {
	s := a.settings
	return icontact.NewV2(s.AppID, s.Username, s.Password, a.options(s.V2BaseURL)...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
