package gluvib

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ecology747-sudo/gluvib/internal/app"
	"github.com/ecology747-sudo/gluvib/internal/db"
	"github.com/ecology747-sudo/gluvib/internal/logging"
	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/provider/nightscout"
	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, nil
	}
	return app.DefaultDBPath()
}

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.OpenMigrated(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()
	return run(sqldb)
}

// withStore opens the database and wires the Nightscout provider when a URL
// is configured in the config file, the environment or the settings table.
func withStore(ctx context.Context, run func(*store.SQLite) error) error {
	return withDB(func(sqldb *sql.DB) error {
		s := store.NewSQLite(sqldb)
		s.RefreshDays = cfg.Nightscout.RefreshDays
		provider, err := nightscoutProvider(ctx, s)
		if err != nil {
			return err
		}
		if provider != nil {
			s.Provider = provider
		}
		return run(s)
	})
}

func nightscoutProvider(ctx context.Context, s *store.SQLite) (*nightscout.Client, error) {
	url, token := cfg.Nightscout.URL, cfg.Nightscout.Token
	if url == "" {
		v, ok, err := s.GetSetting(ctx, store.SettingNightscoutURL)
		if err != nil {
			return nil, err
		}
		if ok {
			url = v
		}
	}
	if token == "" {
		v, ok, err := s.GetSetting(ctx, store.SettingNightscoutToken)
		if err != nil {
			return nil, err
		}
		if ok {
			token = v
		}
	}
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	return &nightscout.Client{
		BaseURL:    url,
		Token:      token,
		HTTPClient: &http.Client{Timeout: cfg.Nightscout.Timeout},
	}, nil
}

func newPipeline(src service.Source, d service.Deferrer) *service.Pipeline {
	log := logging.Component("pipeline")
	score := cfg.Score
	return service.New(src, service.Options{
		Deferrer:       d,
		Score:          &score,
		LookbackDays:   cfg.Pipeline.LookbackDays,
		DailyChartDays: cfg.Pipeline.DailyChartDays,
		Logger:         &log,
	})
}

func parseDayArg(name, value string, fallback model.Day) (model.Day, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := model.ParseDay(value)
	if err != nil {
		return model.Day{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, value)
	}
	return d, nil
}

func todayString() string {
	return model.DayOf(time.Now()).String()
}
