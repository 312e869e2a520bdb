package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestJob() *Job {
	return NewJob(Row{ID: 1, Status: string(StatusIdle)}, time.Minute, 3)
}

func TestMarkFailed_SoftfailThenHardfailAtThreshold(t *testing.T) {
	j := newTestJob()
	now := time.Now()

	j.MarkFailed(now, Transient, "blip 1")
	assert.Equal(t, StatusSoftfail, j.Status())
	assert.Equal(t, 1, j.row.SoftfailCount)
	assert.True(t, j.row.NotBeforeDate.Time.After(j.row.SoftfailDate.Time.Add(-time.Second)))

	j.MarkFailed(now, Transient, "blip 2")
	assert.Equal(t, StatusSoftfail, j.Status())
	assert.Equal(t, 2, j.row.SoftfailCount)

	// softfailMax is 3: the third occurrence must hardfail.
	j.MarkFailed(now, Transient, "blip 3")
	assert.Equal(t, StatusHardfail, j.Status())
	assert.Equal(t, 3, j.row.SoftfailCount)
	assert.True(t, j.row.EndDate.Valid)
}

func TestMarkFailed_PermanentHardfailsImmediately(t *testing.T) {
	j := newTestJob()
	j.MarkFailed(time.Now(), Permanent, "bad input")
	assert.Equal(t, StatusHardfail, j.Status())
	assert.Equal(t, 0, j.row.SoftfailCount)
}

func TestMarkAdmin_IsIdempotent(t *testing.T) {
	j := newTestJob()
	j.MarkAdmin()
	assert.Equal(t, StatusIdle, j.Status())
	assert.True(t, j.row.AdminRequest)
	assert.False(t, j.row.StartDate.Valid)

	j.MarkAdmin()
	assert.Equal(t, StatusIdle, j.Status())
	assert.True(t, j.row.AdminRequest)
}

func TestMarkSuccess_SetsTerminalState(t *testing.T) {
	j := newTestJob()
	now := time.Now()
	j.MarkActive(now)
	j.MarkSuccess(now.Add(time.Second), "done")
	assert.Equal(t, StatusSuccess, j.Status())
	assert.True(t, j.row.EndDate.Valid)
	assert.Equal(t, "done", j.row.Result.String)
}

func TestDecodeParameters_MalformedJSONIsPermanent(t *testing.T) {
	j := NewJob(Row{ParametersJSON: `{not json`}, time.Minute, 3)
	var v map[string]string
	err := j.DecodeParameters(&v)
	if assert.Error(t, err) {
		assert.Equal(t, Permanent, ClassifyErr(err))
	}
}
