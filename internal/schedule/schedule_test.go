package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func memOpen(files map[string]string) OpenFunc {
	return func(_ context.Context, location string) (io.ReadCloser, string, error) {
		body, ok := files[location]
		if !ok {
			return nil, "", errors.New("not found")
		}
		return io.NopCloser(strings.NewReader(body)), location, nil
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 */5 * * * *"))
	assert.NoError(t, Validate("@hourly"))
	assert.Error(t, Validate("*/5 * * * *"))
	assert.Error(t, Validate("often"))
}

func TestRunOnceAnalyzesEachTargetIndependently(t *testing.T) {
	opts := analysis.DefaultOptions()
	keyed := opts
	keyed.IDColumn = "k"
	targets := []Target{
		{Location: "good.csv", Options: opts},
		{Location: "missing.csv", Options: opts},
		{Location: "keyed.csv", Options: keyed},
	}
	open := memOpen(map[string]string{
		"good.csv":  "id\n1\n2\n",
		"keyed.csv": "id,k\n1,a\n1,b\n",
	})
	s, err := New("@hourly", targets, analysis.New(opts, nil, quiet), open, nil, quiet)
	require.NoError(t, err)

	out := s.RunOnce(context.Background())
	require.Len(t, out, 3)
	assert.True(t, out[0].Result.OK())
	assert.Equal(t, analysis.KindParse, out[1].Result.Failure.Kind)
	require.True(t, out[2].Result.OK())
	assert.True(t, out[2].Result.Report.Success, "uniqueness should be checked on k, not id")
}

func TestNewRejectsBadInput(t *testing.T) {
	a := analysis.New(analysis.DefaultOptions(), nil, quiet)
	_, err := New("bogus", []Target{{Location: "x"}}, a, memOpen(nil), nil, quiet)
	assert.Error(t, err)
	_, err = New("@hourly", nil, a, memOpen(nil), nil, quiet)
	assert.Error(t, err)
}

func TestRunTicks(t *testing.T) {
	opts := analysis.DefaultOptions()
	s, err := New("@every 1s", []Target{{Location: "a.csv", Options: opts}}, analysis.New(opts, nil, quiet),
		memOpen(map[string]string{"a.csv": "id\n1\n"}), nil, quiet)
	require.NoError(t, err)

	ticks := make(chan []Outcome, 4)
	s.OnTick(func(o []Outcome) { ticks <- o })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case o := <-ticks:
		require.Len(t, o, 1)
		assert.True(t, o[0].Result.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("no scheduled run within 5s")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
