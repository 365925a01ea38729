package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lossPattern = regexp.MustCompile(`loss_before=([0-9.]+) loss_after=([0-9.]+)`)

func losses(t *testing.T, out string) (before, after float64) {
	t.Helper()
	m := lossPattern.FindStringSubmatch(out)
	require.Len(t, m, 3, "output: %s", out)
	before, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	after, err = strconv.ParseFloat(m[2], 64)
	require.NoError(t, err)
	return before, after
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out))
	assert.Equal(t, "rmsprop "+version+"\n", out.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"serve"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: serve")

	assert.Error(t, run(context.Background(), nil, &out))
}

func TestRun_Train(t *testing.T) {
	for _, mode := range []string{modeEager, modeGraph} {
		t.Run(mode, func(t *testing.T) {
			var out bytes.Buffer
			args := []string{"train", "-mode", mode, "-steps", "100", "-lr", "0.05", "-dim", "5"}
			require.NoError(t, run(context.Background(), args, &out))

			before, after := losses(t, out.String())
			assert.Less(t, after, before)
			assert.Contains(t, out.String(), "live=0")
			assert.Contains(t, out.String(), "double_releases=0")
		})
	}
}

func TestRun_TrainFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"mode", []string{"-mode", "lazy"}, "unknown mode"},
		{"dim", []string{"-dim", "0"}, "dim must be"},
		{"batch", []string{"-batch", "0"}, "batch must be"},
		{"graph checkpoint", []string{"-mode", "graph", "-db", "x.db"}, "require -mode eager"},
		{"resume without run", []string{"-resume", "-db", "x.db"}, "-resume requires"},
		{"decay", []string{"-decay", "1"}, "invalid decay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), append([]string{"train"}, tt.args...), &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_TrainResume(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "runs.db")
	base := []string{"train", "-db", db, "-run", "r1", "-dim", "4", "-lr", "0.05"}

	var first bytes.Buffer
	require.NoError(t, run(ctx, append(base, "-steps", "20"), &first))
	_, afterFirst := losses(t, first.String())

	var second bytes.Buffer
	require.NoError(t, run(ctx, append(base, "-steps", "20", "-resume"), &second))
	beforeSecond, afterSecond := losses(t, second.String())
	assert.Contains(t, second.String(), "resumed")
	assert.InDelta(t, afterFirst, beforeSecond, 1e-6)
	assert.Less(t, afterSecond, beforeSecond)

	var list bytes.Buffer
	require.NoError(t, run(ctx, []string{"checkpoints", "-db", db}, &list))
	assert.Equal(t, "r1\n", list.String())
}
