package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStopsQuietlyOnCancel(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "data.epd")
	require.NoError(t, os.WriteFile(path, []byte(
		"4k3/8/8/8/8/8/8/R3K3 w - - 0 1 30 [1.0]\n"+
			"r3k3/8/8/8/8/8/8/4K3 w - - 0 1 -30 [0.0]\n"), 0644))

	config = Config{
		trainingPath:    path,
		format:          "auto",
		outputDir:       filepath.Join(dir, "out"),
		netID:           "net",
		input:           "768",
		ftSize:          4,
		activation:      "CReLU",
		quantisations:   "255,64",
		evalScale:       400,
		batchSize:       2,
		batchesPerEpoch: 1_000_000,
		startEpoch:      1,
		endEpoch:        2,
		saveRate:        1,
		lr:              "const:0.001",
		wdl:             "const:0.5",
		bufferSize:      2,
		queueDepth:      1,
		threads:         1,
	}

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, run(ctx))

	config.lr = "bogus"
	assert.Error(t, run(context.Background()))
}

func TestParseInts(t *testing.T) {
	v, err := parseInts(" 16, 32,,8 ")
	require.NoError(t, err)
	assert.Equal(t, []int{16, 32, 8}, v)

	v, err = parseInts("")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = parseInts("16,x")
	assert.Error(t, err)
}
