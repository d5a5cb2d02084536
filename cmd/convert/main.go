package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
)

type Config struct {
	input   string
	format  string
	output  string
	shuffle bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var config = Config{
		format:  "auto",
		shuffle: true,
	}
	flag.StringVar(&config.input, "input", config.input, "Path to source dataset")
	flag.StringVar(&config.format, "format", config.format, "Source format: auto, text, binary or marlin")
	flag.StringVar(&config.output, "output", config.output, "Path to binary dataset")
	flag.BoolVar(&config.shuffle, "shuffle", config.shuffle, "Shuffle positions")
	flag.Parse()

	log.Printf("%+v", config)

	var err = run(config)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(config Config) error {
	if config.input == "" || config.output == "" {
		return fmt.Errorf("input and output are required")
	}
	source, err := dataset.OpenFile(config.input, config.format)
	if err != nil {
		return err
	}
	boards, err := dataset.ReadAll(source)
	if err != nil {
		return err
	}
	var stats dataset.Stats
	stats.AddAll(boards)
	log.Println("Loaded", &stats)
	if config.shuffle {
		dataset.Shuffle(boards)
	}

	file, err := os.Create(config.output)
	if err != nil {
		return err
	}
	defer file.Close()

	var w = dataset.NewBinaryWriter(file)
	for i := range boards {
		if err := w.Write(&boards[i]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Println("Saved", config.output)
	return file.Close()
}
