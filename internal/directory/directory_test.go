package directory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(&googleapi.Error{Code: http.StatusUnauthorized}))
	assert.Equal(t, KindCredential, Classify(&googleapi.Error{Code: http.StatusForbidden}))
	assert.Equal(t, KindPermanent, Classify(&googleapi.Error{Code: http.StatusNotFound}))
	assert.Equal(t, KindPermanent, Classify(&googleapi.Error{Code: http.StatusConflict}))
	assert.Equal(t, KindTransient, Classify(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.Equal(t, KindTransient, Classify(&googleapi.Error{Code: http.StatusInternalServerError}))
	assert.Equal(t, KindTransient, Classify(errors.New("dial tcp: no such host")))
}

func TestResettableTokenSourceReset(t *testing.T) {
	cfg := &jwt.Config{Email: "test@example.com", PrivateKey: []byte("dummy"), TokenURL: "https://oauth2.googleapis.com/token"}
	ts := newResettableTokenSource(context.Background(), cfg)
	before := ts.cur
	ts.reset()
	assert.NotSame(t, before, ts.cur)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, IsNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestLatestAvailableReportDate_BeforeNoonIsTwoDaysBack(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	assert.NoError(t, err)
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, loc)

	d, err := LatestAvailableReportDate(now)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC), d)
}

func TestLatestAvailableReportDate_AfterNoonIsOneDayBack(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	assert.NoError(t, err)
	now := time.Date(2026, 7, 31, 13, 0, 0, 0, loc)

	d, err := LatestAvailableReportDate(now)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), d)
}
