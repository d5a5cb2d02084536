package trainer

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
	"github.com/ChizhovVadim/nnuetrain/internal/schedule"
)

const progressRate = 128

// Run trains from sched.StartEpoch to sched.EndEpoch on batches streamed by
// loader, saving checkpoints into settings.OutputDirectory.
func (t *Trainer) Run(
	ctx context.Context,
	sched *schedule.TrainingSchedule,
	settings *schedule.LocalSettings,
	loader *dataset.Loader,
) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(settings.OutputDirectory, os.ModePerm); err != nil {
		return err
	}
	var threads = max(1, settings.Threads)

	var testSet []dataset.ChessBoard
	if settings.TestSet != nil {
		var err error
		testSet, err = dataset.ReadAll(settings.TestSet)
		if err != nil {
			return err
		}
		log.Println("Loaded test set", len(testSet))
	}

	log.Println("Train started",
		"net", sched.NetID,
		"topology", t,
		"epochs", sched.EndEpoch-sched.StartEpoch+1,
		"batches per epoch", sched.BatchesPerEpoch)
	defer log.Println("Train finished")

	var epoch = sched.StartEpoch
	var lr, blend = sched.Rates(epoch)
	var batches, positions int
	var start = time.Now()
	t.PrepForEpoch()

	var saveErr error
	var err = loader.MapBatches(ctx, t.BatchSize(), func(boards []dataset.ChessBoard) bool {
		t.ClearData()
		t.LoadData(dataset.PrepareBatch(t.input, boards, threads, blend, t.scale))
		t.TrainOnBatch(sched.WeightDecay, lr)

		batches++
		positions += len(boards)
		if batches%progressRate == 0 {
			var elapsed = time.Since(start).Seconds()
			log.Printf("epoch %v batch %v/%v %.0f pos/sec\n",
				epoch, batches, sched.BatchesPerEpoch, float64(positions)/elapsed)
		}
		if batches < sched.BatchesPerEpoch {
			return false
		}

		log.Printf("Finished epoch %v error %.6f lr %v blend %v time %v\n",
			epoch, t.Error()/float32(positions), lr, blend, time.Since(start).Round(time.Millisecond))
		if testSet != nil {
			log.Printf("Test error %.6f\n", t.TestError(testSet, threads, blend))
		}
		if sched.ShouldSave(epoch) {
			saveErr = t.Save(settings.OutputDirectory, sched.NetID, epoch)
			if saveErr != nil {
				return true
			}
			log.Println("Saved", CheckpointPath(settings.OutputDirectory, sched.NetID, epoch))
		}
		if epoch == sched.EndEpoch {
			return true
		}

		epoch++
		lr, blend = sched.Rates(epoch)
		batches, positions = 0, 0
		start = time.Now()
		t.PrepForEpoch()
		return false
	})
	if saveErr != nil {
		return saveErr
	}
	return err
}
