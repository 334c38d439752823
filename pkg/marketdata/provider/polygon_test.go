package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	codes "github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type fakePolygonAPI struct {
	iterator PolygonAggsIterator
	params   *models.ListAggsParams
}

func (f *fakePolygonAPI) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	f.params = params

	return f.iterator
}

type sliceIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (s *sliceIterator) Next() bool {
	if s.index < len(s.aggs) {
		s.index++

		return true
	}

	return false
}

func (s *sliceIterator) Item() models.Agg {
	return s.aggs[s.index-1]
}

func (s *sliceIterator) Err() error {
	return s.err
}

type PolygonClientTestSuite struct {
	suite.Suite
	start time.Time
	end   time.Time
}

func TestPolygonClientSuite(t *testing.T) {
	suite.Run(t, new(PolygonClientTestSuite))
}

func (suite *PolygonClientTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
}

func dailyAgg(day int, closePrice float64) models.Agg {
	return models.Agg{
		Timestamp: models.Millis(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)),
		Open:      closePrice - 1,
		High:      closePrice + 1,
		Low:       closePrice - 2,
		Close:     closePrice,
		Volume:    1000,
	}
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient() {
	client, err := NewPolygonClient("test-api-key")
	suite.Require().NoError(err)

	polygonClient, ok := client.(*PolygonClient)
	suite.Require().True(ok)
	suite.NotNil(polygonClient.apiClient)
	suite.Nil(polygonClient.writer)

	_, err = NewPolygonClient("")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "apiKey is required")
}

func (suite *PolygonClientTestSuite) TestDownloadWithoutWriter() {
	client := NewPolygonClientWithAPI(&fakePolygonAPI{iterator: &sliceIterator{}})

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "no writer configured")
}

func (suite *PolygonClientTestSuite) TestDownloadWriterInitializeError() {
	client := NewPolygonClientWithAPI(&fakePolygonAPI{iterator: &sliceIterator{}})
	client.ConfigWriter(&recordingWriter{initializeErr: errors.New("initialization failed")})

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to initialize writer")
	suite.Equal(codes.ErrCodeMarketDataWriteFailed, codes.GetCode(err))
}

func (suite *PolygonClientTestSuite) TestDownloadSuccess() {
	api := &fakePolygonAPI{iterator: &sliceIterator{aggs: []models.Agg{dailyAgg(2, 100.5), dailyAgg(3, 101.5)}}}
	client := NewPolygonClientWithAPI(api)
	w := &recordingWriter{outputPath: "/tmp/SPY.parquet"}
	client.ConfigWriter(w)

	progress := &progressRecorder{}

	path, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, progress.record)
	suite.Require().NoError(err)
	suite.Equal("/tmp/SPY.parquet", path)

	suite.Equal("SPY", api.params.Ticker)
	suite.Equal(models.Day, api.params.Timespan)
	suite.Equal(1, api.params.Multiplier)

	suite.Require().Len(w.bars, 2)
	suite.Equal("SPY", w.bars[0].Symbol)
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), w.bars[0].Time.UTC())
	suite.Equal(100.5, w.bars[0].Close)
	suite.Equal(101.5, w.bars[1].Close)
	suite.True(w.initialized)
	suite.True(w.finalized)
	suite.True(w.closed)

	// one call per bar plus completion, relative to the start date
	suite.Require().Len(progress.calls, 3)
	suite.InDelta(1.0, progress.calls[0].current, 1e-9)
	suite.InDelta(11.0, progress.calls[0].total, 1e-9)
	suite.Equal(progress.calls[2].total, progress.calls[2].current)
}

func (suite *PolygonClientTestSuite) TestDownloadIteratorError() {
	api := &fakePolygonAPI{iterator: &sliceIterator{err: errors.New("rate limited")}}
	client := NewPolygonClientWithAPI(api)
	w := &recordingWriter{}
	client.ConfigWriter(w)

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Equal(codes.ErrCodeMarketDataFetchFailed, codes.GetCode(err))
	suite.False(w.finalized)
	suite.True(w.closed)
}

func (suite *PolygonClientTestSuite) TestDownloadWriteError() {
	api := &fakePolygonAPI{iterator: &sliceIterator{aggs: []models.Agg{dailyAgg(2, 100)}}}
	client := NewPolygonClientWithAPI(api)
	client.ConfigWriter(&recordingWriter{writeErr: errors.New("disk full")})

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to write data")
}

func (suite *PolygonClientTestSuite) TestDownloadFinalizeError() {
	api := &fakePolygonAPI{iterator: &sliceIterator{aggs: []models.Agg{dailyAgg(2, 100)}}}
	client := NewPolygonClientWithAPI(api)
	client.ConfigWriter(&recordingWriter{finalizeErr: errors.New("copy failed")})

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to finalize writer")
}

func (suite *PolygonClientTestSuite) TestCloseErrorIsReported() {
	api := &fakePolygonAPI{iterator: &sliceIterator{}}
	client := NewPolygonClientWithAPI(api)
	client.ConfigWriter(&recordingWriter{closeErr: errors.New("close failed")})

	_, err := client.Download(context.Background(), "SPY", suite.start, suite.end, 1, models.Day, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "error closing writer")
}
