package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLR(t *testing.T) {
	var s = StepLR{Start: 0.001, Gamma: 0.1, Step: 8}
	assert.InDelta(t, 0.001, s.LR(1), 1e-9)
	assert.InDelta(t, 0.001, s.LR(8), 1e-9)
	assert.InDelta(t, 0.0001, s.LR(9), 1e-9)
	assert.InDelta(t, 0.00001, s.LR(17), 1e-10)
}

func TestDropLR(t *testing.T) {
	var s = DropLR{Start: 0.01, Gamma: 0.5, Drop: 3}
	assert.Equal(t, float32(0.01), s.LR(3))
	assert.Equal(t, float32(0.005), s.LR(4))
}

func TestLinearWDL(t *testing.T) {
	var s = LinearWDL{Start: 0.2, End: 0.6}
	assert.InDelta(t, 0.2, s.Blend(1, 5), 1e-6)
	assert.InDelta(t, 0.4, s.Blend(3, 5), 1e-6)
	assert.InDelta(t, 0.6, s.Blend(5, 5), 1e-6)
	assert.InDelta(t, 0.2, s.Blend(1, 1), 1e-6)
}

func TestTrainingSchedule(t *testing.T) {
	var s = &TrainingSchedule{
		NetID:           "net",
		StartEpoch:      1,
		EndEpoch:        10,
		BatchesPerEpoch: 100,
		LrScheduler:     ConstantLR{Value: 0.001},
		WdlScheduler:    ConstantWDL{Value: 0.5},
		SaveRate:        4,
	}
	require.NoError(t, s.Validate())

	var lr, blend = s.Rates(7)
	assert.Equal(t, float32(0.001), lr)
	assert.Equal(t, float32(0.5), blend)

	assert.False(t, s.ShouldSave(3))
	assert.True(t, s.ShouldSave(8))
	assert.True(t, s.ShouldSave(10))

	s.EndEpoch = 0
	assert.Error(t, s.Validate())
}

func TestParse(t *testing.T) {
	lr, err := ParseLR("step:0.001:0.1:8")
	require.NoError(t, err)
	assert.Equal(t, StepLR{Start: 0.001, Gamma: 0.1, Step: 8}, lr)

	lr, err = ParseLR("const:0.01")
	require.NoError(t, err)
	assert.Equal(t, ConstantLR{Value: 0.01}, lr)

	wdl, err := ParseWDL("linear:0.2:0.5")
	require.NoError(t, err)
	assert.Equal(t, LinearWDL{Start: 0.2, End: 0.5}, wdl)

	for _, s := range []string{"step:0.1", "cosine:0.1", "const:x", "step:0.1:0.1:0"} {
		_, err = ParseLR(s)
		assert.Error(t, err, s)
	}
	_, err = ParseWDL("const")
	assert.Error(t, err)
}
