package cmd

import (
	"fmt"
	"time"

	"github.com/Tiliavir/horas/internal/config"
	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
)

// periodFlags selects the days a command covers.
type periodFlags struct {
	date  string
	from  string
	to    string
	today bool
	week  bool
}

// period resolves the flags for a tenant timezone. With no flag set the
// result is fallback.
func (f periodFlags) period(now time.Time, loc *time.Location, fallback func(today time.Time) model.Period) (model.Period, error) {
	today := timecalc.StartOfDay(now.In(loc))
	switch {
	case f.date != "":
		d, err := timecalc.ParseDay(f.date, loc)
		if err != nil {
			return model.Period{}, err
		}
		return model.Period{From: d, To: d}, nil
	case f.from != "":
		from, err := timecalc.ParseDay(f.from, loc)
		if err != nil {
			return model.Period{}, err
		}
		to := today
		if f.to != "" {
			if to, err = timecalc.ParseDay(f.to, loc); err != nil {
				return model.Period{}, err
			}
		}
		if to.Before(from) {
			return model.Period{}, fmt.Errorf("--to %s is before --from %s", timecalc.DayKey(to), timecalc.DayKey(from))
		}
		return model.Period{From: from, To: to}, nil
	case f.to != "":
		return model.Period{}, fmt.Errorf("--to requires --from")
	case f.today:
		return model.Period{From: today, To: today}, nil
	case f.week:
		monday, sunday := timecalc.WeekRange(today)
		return model.Period{From: monday, To: sunday}, nil
	}
	return fallback(today), nil
}

func yesterday(today time.Time) model.Period {
	y, m, day := today.Date()
	d := timecalc.DayStart(y, m, day-1, today.Location())
	return model.Period{From: d, To: d}
}

func thisWeek(today time.Time) model.Period {
	monday, sunday := timecalc.WeekRange(today)
	return model.Period{From: monday, To: sunday}
}

// tenantLocation returns the timezone of a configured tenant.
func tenantLocation(cfg config.Config, id string) (config.Tenant, *time.Location, error) {
	if id == "" {
		return config.Tenant{}, nil, fmt.Errorf("--tenant is required (configured: %v)", cfg.TenantIDs())
	}
	t, ok := cfg.Tenant(id)
	if !ok {
		return config.Tenant{}, nil, fmt.Errorf("unknown tenant %q (configured: %v)", id, cfg.TenantIDs())
	}
	loc, err := t.Location()
	if err != nil {
		return config.Tenant{}, nil, err
	}
	return t, loc, nil
}
