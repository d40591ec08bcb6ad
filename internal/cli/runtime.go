package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/aion/config"
	"github.com/rustyeddy/aion/journal"
	"github.com/rustyeddy/aion/paper"
)

// openRuntime builds a paper runtime from cfg and restores its persisted
// state. A snapshot that cannot be read is an error here: writing over it
// would lose trades.
func openRuntime(cfg *config.Config) (*paper.Runtime, func(), error) {
	var rec journal.Journal = journal.Nop{}
	if cfg.Journal.Type == "sqlite" {
		j, err := openJournal(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, err
		}
		rec = j
	}
	closeFn := func() {
		if err := rec.Close(); err != nil {
			log.Warn().Err(err).Msg("journal close failed")
		}
	}

	rt := paper.New(
		paper.WithLogger(log.Logger),
		paper.WithRecorder(rec),
		paper.WithLimitsOptions(cfg.Phase.Options()),
		paper.WithPolicy(cfg.Policy),
	)
	if st := rt.ConfigurePersistence(cfg.Persistence); !st.OK {
		log.Warn().Str("path", st.BaseDir).Str("error", st.Error).Msg("persistence unavailable")
	}
	if cfg.Persistence.Enabled {
		res := rt.Restore(true)
		if !res.OK {
			closeFn()
			return nil, nil, fmt.Errorf("restore paper runtime: %s", res.Error)
		}
		log.Debug().Int("trades", res.RestoredTrades).Int("events", res.RestoredEvents).Msg("paper runtime restored")
	}
	return rt, closeFn, nil
}

func openJournal(path string) (*journal.SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

// mutate runs fn against the restored runtime and snapshots the result.
// fn returns the value to print and whether the operation succeeded.
func mutate(rc *RootConfig, fn func(rt *paper.Runtime) (any, string, bool)) (any, error) {
	rt, closeFn, err := openRuntime(rc.Config)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	out, reason, ok := fn(rt)
	if rc.Config.Persistence.Enabled {
		if snap := rt.Snapshot(); !snap.OK {
			log.Warn().Str("error", snap.Error).Msg("snapshot after update failed")
		}
	}
	if !ok {
		return out, fmt.Errorf("rejected: %s", reason)
	}
	return out, nil
}
