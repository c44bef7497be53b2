// Package runcmder provides the run command: a single realtime connectivity
// check against the configured endpoint.
package runcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/rtcheck/pkg/cliui"
	"github.com/papercomputeco/rtcheck/pkg/config"
	"github.com/papercomputeco/rtcheck/pkg/credentials"
	"github.com/papercomputeco/rtcheck/pkg/eventstream"
	"github.com/papercomputeco/rtcheck/pkg/eventstream/kafka"
	"github.com/papercomputeco/rtcheck/pkg/eventstream/nop"
	"github.com/papercomputeco/rtcheck/pkg/git"
	"github.com/papercomputeco/rtcheck/pkg/logger"
	"github.com/papercomputeco/rtcheck/pkg/realtime"
)

const runLongDesc string = `Run a realtime connectivity check.

Opens one websocket connection to the realtime API, configures a text-only
session, asks for a short response and prints the streamed text once the
response completes. Server error events end the check immediately.

The API key is read from OPENAI_API_KEY, then from credentials stored with
'rtcheck auth openai', then from the xcconfig secrets file.

The proxy defaults to $HTTPS_PROXY or $ALL_PROXY when neither --proxy nor
network.proxy is set.

Examples:
  rtcheck run
  rtcheck run --proxy http://127.0.0.1:7890
  rtcheck run --insecure --proxy http://127.0.0.1:8888
  rtcheck run --prompt "Ask me about pricing" --render
  rtcheck run --publish --kafka-brokers localhost:9092`

const runShortDesc string = "Run a realtime connectivity check"

// publishTimeout bounds publishing after the check, including after an
// interrupt.
const publishTimeout = 10 * time.Second

// checkStream is an open connection a Session can drive.
type checkStream interface {
	realtime.Stream
	Close() error
}

type dialFunc func(ctx context.Context, opts realtime.Options, log *slog.Logger) (checkStream, error)

type runCommander struct {
	url                  string
	model                string
	openTimeout          time.Duration
	proxy                string
	insecure             bool
	sessionInstructions  string
	responseInstructions string
	xcconfigPath         string
	kafkaBrokers         string
	kafkaTopic           string

	render  bool
	publish bool
	logFile string

	configDir string
	debug     bool

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	getenv func(string) string
	dial   dialFunc
	repo   *git.Detector
}

var runFlags = []string{
	config.FlagURL,
	config.FlagModel,
	config.FlagOpenTimeout,
	config.FlagProxy,
	config.FlagInsecure,
	config.FlagSessionInstructions,
	config.FlagResponseInstructions,
	config.FlagXCConfig,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewRunCmd() *cobra.Command {
	return newRunCmd(&runCommander{
		getenv: os.Getenv,
		dial:   dialRealtime,
		repo:   git.NewDetector(),
	})
}

func newRunCmd(cmder *runCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.CheckFlags, runFlags)
			cmder.load(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.CheckFlags, config.FlagURL, &cmder.url)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagModel, &cmder.model)
	config.AddDurationFlag(cmd, config.CheckFlags, config.FlagOpenTimeout, &cmder.openTimeout)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagProxy, &cmder.proxy)
	config.AddBoolFlag(cmd, config.CheckFlags, config.FlagInsecure, &cmder.insecure)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagSessionInstructions, &cmder.sessionInstructions)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagResponseInstructions, &cmder.responseInstructions)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagXCConfig, &cmder.xcconfigPath)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.CheckFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the response as markdown")
	cmd.Flags().BoolVar(&cmder.publish, "publish", false, "Publish the check result to the configured kafka topic")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON debug logs to this file")

	return cmd
}

// load reads the layered configuration (flag > env > config file > default)
// into the commander.
func (c *runCommander) load(v *viper.Viper) {
	c.url = v.GetString("realtime.url")
	c.model = v.GetString("realtime.model")
	c.openTimeout = v.GetDuration("realtime.open_timeout")
	c.proxy = v.GetString("network.proxy")
	c.insecure = v.GetBool("network.insecure")
	c.sessionInstructions = v.GetString("session.instructions")
	c.responseInstructions = v.GetString("response.instructions")
	c.xcconfigPath = v.GetString("secrets.xcconfig_path")
	c.kafkaBrokers = v.GetString("eventstream.kafka_brokers")
	c.kafkaTopic = v.GetString("eventstream.kafka_topic")

	if c.proxy == "" {
		c.proxy = realtime.ProxyFromEnv(c.getenv)
	}
}

func (c *runCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	apiKey, source, err := c.resolveKey()
	if err != nil {
		return err
	}
	c.logger.Debug("resolved api key", "source", source, "key", credentials.MaskKey(apiKey))

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	fmt.Fprintf(c.out, "Connecting to %s ...\n", c.model)
	if c.proxy != "" {
		fmt.Fprintf(c.out, "Using proxy: %s\n", c.proxy)
	} else {
		fmt.Fprintln(c.out, "Proxy: none (direct connection)")
	}
	if c.insecure {
		fmt.Fprintln(c.out, cliui.WarnStyle.Render("[warn]")+" SSL verification disabled for debug purposes.")
	}

	opts := realtime.Options{
		URL:         c.url,
		Model:       c.model,
		APIKey:      apiKey,
		Proxy:       c.proxy,
		Insecure:    c.insecure,
		OpenTimeout: c.openTimeout,
	}

	var stream checkStream
	err = cliui.Step(c.out, "Opening realtime connection", func() error {
		var dialErr error
		stream, dialErr = c.dial(ctx, opts, c.logger)
		return dialErr
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(c.out, "Cancelled by user.")
			return nil
		}
		return fmt.Errorf("connecting to %s: %w", c.model, err)
	}
	defer stream.Close()

	session := realtime.NewSession(c.sessionInstructions, c.responseInstructions)
	session.Reporter = &consoleReporter{w: c.out, render: c.render, logger: c.logger}
	session.Logger = c.logger

	res, runErr := session.Run(ctx, stream)
	c.logger.Debug("check finished",
		"outcome", res.Outcome,
		"fragments", res.Fragments,
		"events", res.EventsReceived,
		"duration", res.Duration(),
	)

	c.publishResult(ctx, publisher, opts, source, res)

	switch res.Outcome {
	case realtime.OutcomeCompleted:
		return nil
	case realtime.OutcomeCancelled:
		fmt.Fprintln(c.out, "Cancelled by user.")
		return nil
	case realtime.OutcomeServerError:
		return runErr
	default:
		return fmt.Errorf("connection lost: %w", runErr)
	}
}

func (c *runCommander) resolveKey() (string, credentials.Source, error) {
	resolver := &credentials.Resolver{
		Getenv:       c.getenv,
		XCConfigPath: c.xcconfigPath,
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		c.logger.Warn("credentials store unavailable", "error", err)
	} else {
		resolver.Store = mgr
	}

	return resolver.Resolve()
}

func (c *runCommander) newPublisher() (eventstream.Publisher, error) {
	if !c.publish {
		return nop.NewPublisher(), nil
	}

	brokers := kafka.ParseBrokers(c.kafkaBrokers)
	if len(brokers) == 0 {
		c.logger.Warn("--publish set but no kafka brokers configured, results will not be published")
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{Brokers: brokers, Topic: c.kafkaTopic})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	return p, nil
}

func (c *runCommander) publishResult(
	ctx context.Context,
	publisher eventstream.Publisher,
	opts realtime.Options,
	source credentials.Source,
	res *realtime.Result,
) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := eventstream.NewCheckCompletedEvent(eventstream.CheckTarget{
		URL:       opts.URL,
		Model:     opts.Model,
		ViaProxy:  opts.Proxy != "",
		Insecure:  opts.Insecure,
		KeySource: string(source),
	}, res)
	if c.publish && c.repo != nil {
		event.Source.Project = c.repo.RepoName(pubCtx, "")
	}

	if err := publisher.PublishCheck(pubCtx, event); err != nil {
		c.logger.Error("publishing check result", "error", err)
		return
	}
	c.logger.Debug("published check result", "event_id", event.EventID)
}

// setupLogger builds the pretty stderr logger and, with --log-file, tees
// every record as JSON into the file.
func (c *runCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(c.errOut),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithSource(true),
		logger.WithWriter(f),
	)

	c.logger = logger.Multi(console, file)
	return func() { _ = f.Close() }, nil
}

func dialRealtime(ctx context.Context, opts realtime.Options, log *slog.Logger) (checkStream, error) {
	client, err := realtime.Dial(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
