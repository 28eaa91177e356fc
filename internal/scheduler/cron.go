package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений и дескрипторов (@every 1m, @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule разбирает расписание проверки.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	_, err := ParseSchedule(expr)
	return err
}

// NextRun вычисляет следующее время проверки.
func NextRun(schedule cron.Schedule, from time.Time) time.Time {
	return schedule.Next(from)
}
