package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestGetResultFolder() {
	tests := []struct {
		name         string
		startTime    optional.Option[time.Time]
		endTime      optional.Option[time.Time]
		expectedPath string
	}{
		{
			name:         "without time range",
			startTime:    optional.None[time.Time](),
			endTime:      optional.None[time.Time](),
			expectedPath: filepath.Join("/results", "AAPL"),
		},
		{
			name:         "with time range",
			startTime:    optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:      optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: filepath.Join("/results", "20230101_20231231", "AAPL"),
		},
		{
			name:         "only start time",
			startTime:    optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:      optional.None[time.Time](),
			expectedPath: filepath.Join("/results", "20230101_all", "AAPL"),
		},
		{
			name:         "only end time",
			startTime:    optional.None[time.Time](),
			endTime:      optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: filepath.Join("/results", "all_20231231", "AAPL"),
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := EmptyConfig()
			config.StartTime = tc.startTime
			config.EndTime = tc.endTime

			suite.Equal(tc.expectedPath, getResultFolder("/results", "AAPL", config))
		})
	}
}

func (suite *UtilsTestSuite) TestContainsPath() {
	tests := []struct {
		name     string
		parent   string
		child    string
		expected bool
	}{
		{name: "same path", parent: "/data", child: "/data", expected: true},
		{name: "nested path", parent: "/work", child: "/work/data", expected: true},
		{name: "sibling path", parent: "/work/results", child: "/work/data", expected: false},
		{name: "child of the other", parent: "/work/data", child: "/work", expected: false},
		{name: "shared prefix", parent: "/work/data", child: "/work/data2", expected: false},
		{name: "dot-dot prefixed name", parent: "/work", child: "/work/..data", expected: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, containsPath(tc.parent, tc.child))
		})
	}
}
