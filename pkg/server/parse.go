package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
)

// FromParsedLine translates one operator.ParsedLine into a Command ready
// for Submit, per the five verbs spec.md §4.11 names. cur is the server's
// current default config, used as the base for a partial `config` update.
func FromParsedLine(line operator.ParsedLine, cur session.Config) (Command, error) {
	switch line.Name {
	case "stop":
		return Command{Kind: CmdStop}, nil
	case "connect":
		if line.Arg(0) == "" {
			return Command{}, fmt.Errorf("operator: connect requires an address")
		}
		return Command{Kind: CmdConnect, Addr: line.Arg(0)}, nil
	case "kick":
		idx, err := strconv.Atoi(line.Arg(0))
		if err != nil {
			return Command{}, fmt.Errorf("operator: kick requires a numeric client index: %w", err)
		}
		return Command{Kind: CmdKick, Index: idx}, nil
	case "list":
		return Command{Kind: CmdList}, nil
	case "config":
		cfg, err := applyConfigArgs(cur, line.KeyValue)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdConfig, Config: cfg}, nil
	default:
		return Command{}, operator.ErrUnknownCommand{Name: line.Name}
	}
}

func applyConfigArgs(cfg session.Config, kv map[string]string) (session.Config, error) {
	if v, ok := kv["max_fd_count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("operator: config max_fd_count=%q: %w", v, err)
		}
		cfg.MaxFDCount = n
	}
	if v, ok := kv["inheritance"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("operator: config inheritance=%q: %w", v, err)
		}
		cfg.Inheritance = b
	}
	if v, ok := kv["refresh_interval"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("operator: config refresh_interval=%q: %w", v, err)
		}
		cfg.RefreshIntervalMS = n
	}
	if v, ok := kv["connect_retries"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("operator: config connect_retries=%q: %w", v, err)
		}
		cfg.ConnectRetries = n
	}
	if v, ok := kv["connect_backoff_ms"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("operator: config connect_backoff_ms=%q: %w", v, err)
		}
		cfg.ConnectBackoff = time.Duration(n) * time.Millisecond
	}
	if v, ok := kv["wal_index"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("operator: config wal_index=%q: %w", v, err)
		}
		cfg.EnableWALIndex = b
	}
	return cfg, nil
}
