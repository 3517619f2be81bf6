package cmd

import (
	"bufio"
	"os"
	"strings"

	"github.com/cossteam/busline/config"
	"github.com/cossteam/busline/pkg/bus"
	"github.com/cossteam/busline/pkg/log"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func init() {
	App.Commands = append(App.Commands, Run)
}

var Run = &cli.Command{
	Name:  "run",
	Usage: "publish stdin lines to configured topics",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file",
		},
		&cli.StringFlag{
			Name:    "loglevel",
			Aliases: []string{"ll"},
			Usage:   "log level (debug info warn error dpanic panic fatal)",
		},
		&cli.StringFlag{
			Name:  "topic",
			Usage: "topic for input lines that do not name one",
		},
	},
	Action: runBus,
}

func runBus(c *cli.Context) error {
	cfg, err := applyConfig(c)
	if err != nil {
		return err
	}

	logger, err := log.SetupLogger(cfg.Loglevel)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run", uuid.NewString()[:8]))

	b := bus.New(bus.WithLogger(logger))

	for _, tc := range cfg.Topics {
		var opts []bus.TopicOption
		if tc.MaxLogSize != nil {
			opts = append(opts, bus.WithMaxLogSize(*tc.MaxLogSize))
		}
		b.Topic(tc.Name, opts...)
		logger.Info("topic ready", zap.String("topic", tc.Name))
	}

	for _, sc := range cfg.Subscriptions {
		if err := attachSink(logger, b, sc); err != nil {
			return err
		}
	}

	// Publish stdin lines of the form "topic: payload"; bare lines go to
	// the default topic.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-c.Context.Done():
			return report(logger, b)
		case line, ok := <-lines:
			if !ok {
				return report(logger, b)
			}
			name, payload := splitLine(line, cfg.DefaultTopic)
			b.Topic(name).Send(payload)
		}
	}
}

func splitLine(line, defaultTopic string) (topic, payload string) {
	if name, rest, ok := strings.Cut(line, ":"); ok && name != "" && !strings.ContainsRune(name, ' ') {
		return name, strings.TrimSpace(rest)
	}
	return defaultTopic, line
}

func report(logger *zap.Logger, b *bus.Bus) error {
	s := b.Stats()
	logger.Info("bus stats",
		zap.Uint64("published", s.Published),
		zap.Uint64("delivered", s.Delivered),
		zap.Uint64("handlerErrors", s.HandlerErrors),
		zap.Uint64("handlerPanics", s.HandlerPanics))
	return nil
}

func attachSink(logger *zap.Logger, b *bus.Bus, sc config.Subscription) error {
	strategy, err := bus.ParseBacklog(sc.Backlog)
	if err != nil {
		return err
	}

	handler, err := buildSink(logger, sc)
	if err != nil {
		return err
	}

	opts := []bus.SubscribeOption{bus.WithBacklog(strategy)}
	if sc.ID != nil {
		opts = append(opts, bus.WithSubscriptionID(*sc.ID))
	}
	if sc.Inactive {
		opts = append(opts, bus.WithStartInactive())
	}

	sub := b.Topic(sc.Topic).Subscribe(handler, opts...)
	logger.Info("subscribed",
		zap.String("topic", sc.Topic),
		zap.Int64("id", sub.ID()),
		zap.Stringer("backlog", strategy),
		zap.Bool("active", sub.IsActive()))
	return nil
}
