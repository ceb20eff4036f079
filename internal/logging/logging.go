// Package logging builds the process logger and the per-transition log
// line written for every processed transaction.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config configures the process logger.
type Config struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`

	// File enables rotated file output in addition to stderr
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// New builds a logger from cfg.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	logger.SetOutput(out)

	return logger, nil
}

// Discard returns a logger that writes nowhere.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Transitions returns an engine observer logging one line per processed
// transaction. Committed transactions log at info, rejected ones at debug.
func Transitions(logger logrus.FieldLogger) tx.Observer {
	return tx.ObserverFunc(func(ev *tx.Event) {
		fields := logrus.Fields{
			"tx_type":  ev.Tx.TxType().String(),
			"account":  ev.Account,
			"result":   ev.Result.String(),
			"duration": ev.Duration,
		}
		if !ev.Hash.IsZero() {
			fields["hash"] = ev.Hash.String()
		}
		if node, ok := ev.Metadata.Node(entry.TypeEscrow.String()); ok {
			fields["escrow"] = node.LedgerIndex
			fields["node"] = node.NodeType
		}

		if ev.Applied {
			logger.WithFields(fields).Info("transaction applied")
			return
		}
		logger.WithFields(fields).Debug("transaction rejected")
	})
}
