package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixedCount struct {
	n   int
	err error
}

func (f fixedCount) CountLive(context.Context) (int, error) { return f.n, f.err }
func (f fixedCount) CountOpen(context.Context) (int, error) { return f.n, f.err }

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewRefresher_InvalidSpec(t *testing.T) {
	_, err := NewRefresher("not a spec", fixedCount{}, fixedCount{}, nil)
	assert.Error(t, err)
}

func TestRefresh_Publishes(t *testing.T) {
	r, err := NewRefresher("", fixedCount{n: 12}, fixedCount{n: 3}, nil)
	require.NoError(t, err)

	var gotResources, gotIssues int
	r.Publish = func(resources, openIssues int) { gotResources, gotIssues = resources, openIssues }

	r.Refresh(context.Background())
	assert.Equal(t, 12, gotResources)
	assert.Equal(t, 3, gotIssues)
}

func TestRefresh_CountFailureSkipsPublish(t *testing.T) {
	r, err := NewRefresher("", fixedCount{n: 12}, fixedCount{err: errors.New("db down")}, nil)
	require.NoError(t, err)

	called := false
	r.Publish = func(int, int) { called = true }

	r.Refresh(context.Background())
	assert.False(t, called)
}

func TestStartStop_NoLeak(t *testing.T) {
	r, err := NewRefresher("@every 1h", fixedCount{n: 1}, fixedCount{n: 1}, nil)
	require.NoError(t, err)

	calls := 0
	r.Publish = func(int, int) { calls++ }

	r.Start(context.Background())
	r.Stop(context.Background())

	assert.Equal(t, 1, calls)
}
