// Package schedule decides the learning rate and result blend of each epoch.
package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
)

type LrScheduler interface {
	LR(epoch int) float32
}

type WdlScheduler interface {
	// Blend is the weight of the game result against the score.
	Blend(epoch, numEpochs int) float32
}

type ConstantLR struct {
	Value float32
}

func (s ConstantLR) LR(epoch int) float32 { return s.Value }

func (s ConstantLR) String() string { return fmt.Sprintf("constant %v", s.Value) }

// StepLR multiplies the rate by Gamma after every Step epochs.
type StepLR struct {
	Start float32
	Gamma float32
	Step  int
}

func (s StepLR) LR(epoch int) float32 {
	var drops = (epoch - 1) / s.Step
	return s.Start * float32(math.Pow(float64(s.Gamma), float64(drops)))
}

func (s StepLR) String() string {
	return fmt.Sprintf("start %v gamma %v every %v epochs", s.Start, s.Gamma, s.Step)
}

// DropLR multiplies the rate by Gamma once, after epoch Drop.
type DropLR struct {
	Start float32
	Gamma float32
	Drop  int
}

func (s DropLR) LR(epoch int) float32 {
	if epoch > s.Drop {
		return s.Start * s.Gamma
	}
	return s.Start
}

func (s DropLR) String() string {
	return fmt.Sprintf("start %v gamma %v after epoch %v", s.Start, s.Gamma, s.Drop)
}

type ConstantWDL struct {
	Value float32
}

func (s ConstantWDL) Blend(epoch, numEpochs int) float32 { return s.Value }

func (s ConstantWDL) String() string { return fmt.Sprintf("constant %v", s.Value) }

// LinearWDL moves the blend from Start at the first epoch to End at the last.
type LinearWDL struct {
	Start float32
	End   float32
}

func (s LinearWDL) Blend(epoch, numEpochs int) float32 {
	if numEpochs <= 1 {
		return s.Start
	}
	var t = float32(epoch-1) / float32(numEpochs-1)
	return s.Start + (s.End-s.Start)*min(max(t, 0), 1)
}

func (s LinearWDL) String() string { return fmt.Sprintf("linear %v to %v", s.Start, s.End) }

type TrainingSchedule struct {
	NetID           string
	StartEpoch      int
	EndEpoch        int
	BatchesPerEpoch int
	WeightDecay     float32
	LrScheduler     LrScheduler
	WdlScheduler    WdlScheduler
	SaveRate        int
}

func (s *TrainingSchedule) Validate() error {
	if s.NetID == "" {
		return fmt.Errorf("schedule: empty net id")
	}
	if s.StartEpoch < 1 || s.EndEpoch < s.StartEpoch {
		return fmt.Errorf("schedule: bad epoch range %v..%v", s.StartEpoch, s.EndEpoch)
	}
	if s.BatchesPerEpoch <= 0 {
		return fmt.Errorf("schedule: bad batches per epoch %v", s.BatchesPerEpoch)
	}
	if s.SaveRate <= 0 {
		return fmt.Errorf("schedule: bad save rate %v", s.SaveRate)
	}
	if s.LrScheduler == nil || s.WdlScheduler == nil {
		return fmt.Errorf("schedule: missing scheduler")
	}
	return nil
}

// Rates returns the learning rate and result blend of epoch.
func (s *TrainingSchedule) Rates(epoch int) (lr, blend float32) {
	return s.LrScheduler.LR(epoch), s.WdlScheduler.Blend(epoch, s.EndEpoch)
}

// ShouldSave reports whether a checkpoint is written after epoch.
func (s *TrainingSchedule) ShouldSave(epoch int) bool {
	return epoch%s.SaveRate == 0 || epoch == s.EndEpoch
}

type LocalSettings struct {
	Threads         int
	OutputDirectory string
	// TestSet is evaluated after every epoch when set.
	TestSet dataset.Source
}

// ParseLR parses "const:<lr>", "step:<lr>:<gamma>:<step>" or
// "drop:<lr>:<gamma>:<epoch>".
func ParseLR(s string) (LrScheduler, error) {
	var kind, values, err = parseArgs(s)
	if err != nil {
		return nil, err
	}
	switch {
	case kind == "const" && len(values) == 1:
		return ConstantLR{Value: float32(values[0])}, nil
	case kind == "step" && len(values) == 3 && values[2] >= 1:
		return StepLR{Start: float32(values[0]), Gamma: float32(values[1]), Step: int(values[2])}, nil
	case kind == "drop" && len(values) == 3:
		return DropLR{Start: float32(values[0]), Gamma: float32(values[1]), Drop: int(values[2])}, nil
	}
	return nil, fmt.Errorf("schedule: bad lr scheduler %q", s)
}

// ParseWDL parses "const:<blend>" or "linear:<start>:<end>".
func ParseWDL(s string) (WdlScheduler, error) {
	var kind, values, err = parseArgs(s)
	if err != nil {
		return nil, err
	}
	switch {
	case kind == "const" && len(values) == 1:
		return ConstantWDL{Value: float32(values[0])}, nil
	case kind == "linear" && len(values) == 2:
		return LinearWDL{Start: float32(values[0]), End: float32(values[1])}, nil
	}
	return nil, fmt.Errorf("schedule: bad wdl scheduler %q", s)
}

func parseArgs(s string) (string, []float64, error) {
	var parts = strings.Split(s, ":")
	var values []float64
	for _, part := range parts[1:] {
		var v, err = strconv.ParseFloat(part, 64)
		if err != nil {
			return "", nil, fmt.Errorf("schedule: %q: %w", s, err)
		}
		values = append(values, v)
	}
	return parts[0], values, nil
}
