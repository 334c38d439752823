package marketdata

import (
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
)

// Timespan is a bar interval such as "1d" or "15m".
type Timespan string

const (
	TimespanOneSecond      Timespan = "1s"
	TimespanOneMinute      Timespan = "1m"
	TimespanThreeMinutes   Timespan = "3m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanTwoHours       Timespan = "2h"
	TimespanFourHours      Timespan = "4h"
	TimespanSixHours       Timespan = "6h"
	TimespanEightHours     Timespan = "8h"
	TimespanTwelveHours    Timespan = "12h"
	TimespanOneDay         Timespan = "1d"
	TimespanThreeDays      Timespan = "3d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

type timespanUnit struct {
	multiplier int
	timespan   models.Timespan
}

var timespanUnits = map[Timespan]timespanUnit{
	TimespanOneSecond:      {1, models.Second},
	TimespanOneMinute:      {1, models.Minute},
	TimespanThreeMinutes:   {3, models.Minute},
	TimespanFiveMinutes:    {5, models.Minute},
	TimespanFifteenMinutes: {15, models.Minute},
	TimespanThirtyMinutes:  {30, models.Minute},
	TimespanOneHour:        {1, models.Hour},
	TimespanTwoHours:       {2, models.Hour},
	TimespanFourHours:      {4, models.Hour},
	TimespanSixHours:       {6, models.Hour},
	TimespanEightHours:     {8, models.Hour},
	TimespanTwelveHours:    {12, models.Hour},
	TimespanOneDay:         {1, models.Day},
	TimespanThreeDays:      {3, models.Day},
	TimespanOneWeek:        {1, models.Week},
	TimespanOneMonth:       {1, models.Month},
}

// ParseTimespan validates an interval string.
func ParseTimespan(value string) (Timespan, error) {
	t := Timespan(value)
	if _, ok := timespanUnits[t]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported interval: %s", value)
	}

	return t, nil
}

// Multiplier returns the number of units per bar. Unknown intervals give 1.
func (t Timespan) Multiplier() int {
	if unit, ok := timespanUnits[t]; ok {
		return unit.multiplier
	}

	return 1
}

// Timespan returns the bar unit. Unknown intervals give models.Day.
func (t Timespan) Timespan() models.Timespan {
	if unit, ok := timespanUnits[t]; ok {
		return unit.timespan
	}

	return models.Day
}
