package trainer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const manifestFile = "manifest.pb"

// CheckpointPath is the directory Save writes for epoch.
func CheckpointPath(outDir, name string, epoch int) string {
	return filepath.Join(outDir, fmt.Sprintf("%v-epoch%v", name, epoch))
}

// Save writes parameters and optimiser state to <outDir>/<name>-epoch<N>/,
// plus the quantised network when quantisations are configured.
func (t *Trainer) Save(outDir, name string, epoch int) error {
	var size = t.NetSize()
	var network = make([]float32, size)
	var momentum = make([]float32, size)
	var velocity = make([]float32, size)
	t.optimiser.WriteToCPU(network, momentum, velocity)

	var path = CheckpointPath(outDir, name, epoch)
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return err
	}

	for _, f := range []struct {
		name string
		data []float32
	}{
		{"params.bin", network},
		{"momentum.bin", momentum},
		{"velocity.bin", velocity},
	} {
		if err := writeFloats(filepath.Join(path, f.name), f.data); err != nil {
			return err
		}
	}

	if err := t.writeManifest(filepath.Join(path, manifestFile), name, epoch); err != nil {
		return err
	}

	if len(t.quantiser) != 0 {
		return t.SaveQuantised(filepath.Join(path, fmt.Sprintf("%v-epoch%v.bin", name, epoch)))
	}
	return nil
}

// LoadFromCheckpoint restores a directory written by Save.
func (t *Trainer) LoadFromCheckpoint(path string) error {
	if err := t.checkManifest(filepath.Join(path, manifestFile)); err != nil {
		return err
	}

	var size = t.NetSize()
	network, err := readFloats(filepath.Join(path, "params.bin"), size)
	if err != nil {
		return err
	}
	momentum, err := readFloats(filepath.Join(path, "momentum.bin"), size)
	if err != nil {
		return err
	}
	velocity, err := readFloats(filepath.Join(path, "velocity.bin"), size)
	if err != nil {
		return err
	}
	t.optimiser.LoadFromCPU(network, momentum, velocity)
	return nil
}

// SaveQuantised writes every parameter as a little-endian int16, multiplied
// by the quantisation covering its range and truncated.
func (t *Trainer) SaveQuantised(path string) error {
	if len(t.quantiser) == 0 {
		return fmt.Errorf("no quantisations configured")
	}
	var network = make([]float32, t.NetSize())
	t.optimiser.WriteWeightsToCPU(network)

	var quantised = quantise(network, t.quantiser)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w = bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, quantised); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func quantise(network []float32, quantiser []quantiseInfo) []int16 {
	var result = make([]int16, len(network))
	for i, q := range quantiser {
		var end = len(network)
		if i+1 < len(quantiser) {
			end = quantiser[i+1].start
		}
		for j := q.start; j < end; j++ {
			var v = math.Trunc(float64(network[j]) * float64(q.val))
			result[j] = int16(min(max(v, math.MinInt16), math.MaxInt16))
		}
	}
	return result
}

func (t *Trainer) manifest(name string, epoch int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"net_id":     name,
		"epoch":      epoch,
		"net_size":   t.NetSize(),
		"topology":   t.String(),
		"eval_scale": float64(t.scale),
	})
}

func (t *Trainer) writeManifest(path, name string, epoch int) error {
	m, err := t.manifest(name, epoch)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// checkManifest accepts a checkpoint without manifest.
func (t *Trainer) checkManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var m structpb.Struct
	if err := proto.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("checkpoint manifest %v: %w", path, err)
	}
	var fields = m.GetFields()
	if size := int(fields["net_size"].GetNumberValue()); size != t.NetSize() {
		return fmt.Errorf("checkpoint %v: net size %v, trainer has %v", path, size, t.NetSize())
	}
	if topology := fields["topology"].GetStringValue(); topology != t.String() {
		return fmt.Errorf("checkpoint %v: topology %q, trainer has %q", path, topology, t.String())
	}
	return nil
}

func writeFloats(path string, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w = bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func readFloats(path string, size int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != 4*size {
		return nil, fmt.Errorf("checkpoint %v: %v bytes, expected %v floats", path, len(data), size)
	}
	var result = make([]float32, size)
	for i := range result {
		result[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return result, nil
}
