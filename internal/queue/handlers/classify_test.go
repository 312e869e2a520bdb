package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/vzanotti/gappsd-go/internal/queue"
)

func TestClassifyRemote(t *testing.T) {
	var d Deps
	assert.Equal(t, queue.Credential, queue.ClassifyErr(d.classifyRemote(&googleapi.Error{Code: http.StatusForbidden})))
	assert.Equal(t, queue.Transient, queue.ClassifyErr(d.classifyRemote(&googleapi.Error{Code: http.StatusUnauthorized})))
	assert.Equal(t, queue.Transient, queue.ClassifyErr(d.classifyRemote(&googleapi.Error{Code: http.StatusTooManyRequests})))
	assert.Equal(t, queue.Permanent, queue.ClassifyErr(d.classifyRemote(&googleapi.Error{Code: http.StatusNotFound})))
}
