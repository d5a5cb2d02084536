package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
	"github.com/ChizhovVadim/nnuetrain/internal/device"
	"github.com/ChizhovVadim/nnuetrain/internal/inputs"
	"github.com/ChizhovVadim/nnuetrain/internal/schedule"
	"github.com/ChizhovVadim/nnuetrain/internal/tensor"
	"github.com/ChizhovVadim/nnuetrain/internal/trainer"
)

type Config struct {
	trainingPath    string
	validationPath  string
	format          string
	outputDir       string
	netID           string
	input           string
	ftSize          int
	hidden          string
	activation      string
	quantisations   string
	evalScale       float64
	batchSize       int
	batchesPerEpoch int
	startEpoch      int
	endEpoch        int
	saveRate        int
	lr              string
	wdl             string
	weightDecay     float64
	bufferSize      int
	queueDepth      int
	threads         int
	seed            int64
	resume          string
	trackAlloc      bool
}

var config Config

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flag.StringVar(&config.trainingPath, "td", "", "Path to training dataset")
	flag.StringVar(&config.validationPath, "vd", "", "Path to validation dataset")
	flag.StringVar(&config.format, "format", "auto", "Dataset format: auto, text, binary or marlin")
	flag.StringVar(&config.outputDir, "out", "checkpoints", "Checkpoint directory")
	flag.StringVar(&config.netID, "id", "net", "Network id")
	flag.StringVar(&config.input, "input", "768", "Input features: 768 or buckets:<n>")
	flag.IntVar(&config.ftSize, "ft", 256, "Feature transformer size")
	flag.StringVar(&config.hidden, "hidden", "", "Comma separated hidden layer sizes")
	flag.StringVar(&config.activation, "act", "SCReLU", "Activation: ReLU, CReLU or SCReLU")
	flag.StringVar(&config.quantisations, "quant", "255,64", "Comma separated quantisations, empty to disable")
	flag.Float64Var(&config.evalScale, "scale", 400, "Eval scale")
	flag.IntVar(&config.batchSize, "batch", 16_384, "Batch size")
	flag.IntVar(&config.batchesPerEpoch, "bpe", 6104, "Batches per epoch")
	flag.IntVar(&config.startEpoch, "start", 1, "First epoch")
	flag.IntVar(&config.endEpoch, "epochs", 30, "Last epoch")
	flag.IntVar(&config.saveRate, "save", 10, "Save every N epochs")
	flag.StringVar(&config.lr, "lr", "step:0.001:0.1:12", "LR scheduler")
	flag.StringVar(&config.wdl, "wdl", "const:0.3", "WDL scheduler")
	flag.Float64Var(&config.weightDecay, "decay", 0.01, "Weight decay")
	flag.IntVar(&config.bufferSize, "buffer", 1<<22, "Positions shuffled together")
	flag.IntVar(&config.queueDepth, "queue", dataset.DefaultQueueDepth, "Batches prepared ahead")
	flag.IntVar(&config.threads, "threads", runtime.NumCPU(), "Number of threads")
	flag.Int64Var(&config.seed, "seed", 0, "Weight init seed")
	flag.StringVar(&config.resume, "resume", "", "Checkpoint directory to resume from")
	flag.BoolVar(&config.trackAlloc, "trackalloc", false, "Log device allocations")
	flag.Parse()

	log.Printf("%+v", config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err = run(ctx)
	if err != nil {
		log.Println(err)
		stop()
		os.Exit(1)
	}
}

// run trains until the last epoch or until ctx is cancelled, which is not
// an error.
func run(ctx context.Context) error {
	device.SetTracking(config.trackAlloc)

	if config.trainingPath == "" {
		return fmt.Errorf("training dataset is not set")
	}
	source, err := dataset.OpenFile(config.trainingPath, config.format)
	if err != nil {
		return err
	}

	input, err := inputs.Parse(config.input)
	if err != nil {
		return err
	}
	activation, err := tensor.ParseActivation(config.activation)
	if err != nil {
		return err
	}
	hidden, err := parseInts(config.hidden)
	if err != nil {
		return fmt.Errorf("hidden: %w", err)
	}
	quantisations, err := parseInts(config.quantisations)
	if err != nil {
		return fmt.Errorf("quant: %w", err)
	}
	lr, err := schedule.ParseLR(config.lr)
	if err != nil {
		return err
	}
	wdl, err := schedule.ParseWDL(config.wdl)
	if err != nil {
		return err
	}

	var builder = trainer.NewBuilder().
		SetInput(input).
		SetBatchSize(config.batchSize).
		SetEvalScale(float32(config.evalScale)).
		SetQuantisations(quantisations...).
		SetSeed(config.seed).
		FeatureTransformer(config.ftSize).
		Activate(activation)
	for _, size := range hidden {
		builder.AddLayer(size).Activate(activation)
	}
	var t = builder.AddLayer(1).Build()
	defer t.Close()
	log.Println("Network", t, "params", t.NetSize())

	if config.resume != "" {
		if err := t.LoadFromCheckpoint(config.resume); err != nil {
			return err
		}
		log.Println("Resumed from", config.resume)
	}

	var settings = &schedule.LocalSettings{
		Threads:         config.threads,
		OutputDirectory: config.outputDir,
	}
	if config.validationPath != "" {
		settings.TestSet, err = dataset.OpenFile(config.validationPath, config.format)
		if err != nil {
			return err
		}
	}

	var sched = &schedule.TrainingSchedule{
		NetID:           config.netID,
		StartEpoch:      config.startEpoch,
		EndEpoch:        config.endEpoch,
		BatchesPerEpoch: config.batchesPerEpoch,
		WeightDecay:     float32(config.weightDecay),
		LrScheduler:     lr,
		WdlScheduler:    wdl,
		SaveRate:        config.saveRate,
	}

	var loader = dataset.NewLoader(source, config.bufferSize)
	loader.QueueDepth = config.queueDepth

	err = t.Run(ctx, sched, settings, loader)
	if errors.Is(err, context.Canceled) {
		log.Println("Train interrupted")
		return nil
	}
	return err
}

func parseInts(s string) ([]int, error) {
	var result []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var v, err = strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}
