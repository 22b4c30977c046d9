package ml

import (
	"fmt"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

var initOnce sync.Once
var initErr error

// initRuntime initializes the ONNX runtime environment once per process
func initRuntime() error {
	initOnce.Do(func() {
		initErr = onnxruntime.InitializeEnvironment()
	})
	return initErr
}

// Model wraps an ONNX Runtime session for transformer inference with
// input_ids / attention_mask inputs
type Model struct {
	session    *onnxruntime.DynamicAdvancedSession
	outputName string
}

// LoadModel loads an ONNX transformer model from file
func LoadModel(modelPath, outputName string) (*Model, error) {
	if err := initRuntime(); err != nil {
		return nil, pipeerrors.Wrap(err, "failed to initialize ONNX runtime")
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, pipeerrors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"}, []string{outputName}, options)
	if err != nil {
		return nil, pipeerrors.Wrapf(err, "failed to load ONNX model %s", modelPath)
	}

	return &Model{
		session:    session,
		outputName: outputName,
	}, nil
}

// Logits runs classification inference for one padded batch.
// Output shape is [batch, numClasses].
func (m *Model) Logits(ids, mask [][]int64, numClasses int) ([][]float32, error) {
	if m.session == nil {
		return nil, pipeerrors.ErrNotInitialized
	}

	batch, _, inputs, err := m.inputTensors(ids, mask)
	if err != nil {
		return nil, err
	}
	defer destroyAll(inputs)

	flat := make([]float32, batch*numClasses)
	outTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(int64(batch), int64(numClasses)), flat)
	if err != nil {
		return nil, pipeerrors.Wrap(err, "failed to create logits tensor")
	}
	defer outTensor.Destroy()

	if err := m.session.Run(inputs, []onnxruntime.Value{outTensor}); err != nil {
		return nil, pipeerrors.Wrap(err, "inference failed")
	}

	out := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		out[i] = append([]float32(nil), flat[i*numClasses:(i+1)*numClasses]...)
	}

	return out, nil
}

// HiddenStates runs encoder inference for one padded batch.
// Output shape is [batch, seq, hidden].
func (m *Model) HiddenStates(ids, mask [][]int64, hiddenSize int) ([][][]float32, error) {
	if m.session == nil {
		return nil, pipeerrors.ErrNotInitialized
	}

	batch, seqLen, inputs, err := m.inputTensors(ids, mask)
	if err != nil {
		return nil, err
	}
	defer destroyAll(inputs)

	flat := make([]float32, batch*seqLen*hiddenSize)
	outTensor, err := onnxruntime.NewTensor(
		onnxruntime.NewShape(int64(batch), int64(seqLen), int64(hiddenSize)), flat)
	if err != nil {
		return nil, pipeerrors.Wrap(err, "failed to create hidden state tensor")
	}
	defer outTensor.Destroy()

	if err := m.session.Run(inputs, []onnxruntime.Value{outTensor}); err != nil {
		return nil, pipeerrors.Wrap(err, "inference failed")
	}

	out := make([][][]float32, batch)
	for b := 0; b < batch; b++ {
		rows := make([][]float32, seqLen)
		for t := 0; t < seqLen; t++ {
			start := (b*seqLen + t) * hiddenSize
			rows[t] = flat[start : start+hiddenSize]
		}
		out[b] = rows
	}

	return out, nil
}

// inputTensors flattens a padded batch into input_ids and attention_mask tensors
func (m *Model) inputTensors(ids, mask [][]int64) (int, int, []onnxruntime.Value, error) {
	batch := len(ids)
	if batch == 0 {
		return 0, 0, nil, fmt.Errorf("empty batch")
	}
	seqLen := len(ids[0])

	flatIDs := make([]int64, 0, batch*seqLen)
	flatMask := make([]int64, 0, batch*seqLen)
	for i := range ids {
		if len(ids[i]) != seqLen || len(mask[i]) != seqLen {
			return 0, 0, nil, fmt.Errorf("ragged batch: row %d not padded to %d", i, seqLen)
		}
		flatIDs = append(flatIDs, ids[i]...)
		flatMask = append(flatMask, mask[i]...)
	}

	shape := onnxruntime.NewShape(int64(batch), int64(seqLen))

	idsTensor, err := onnxruntime.NewTensor(shape, flatIDs)
	if err != nil {
		return 0, 0, nil, pipeerrors.Wrap(err, "failed to create input_ids tensor")
	}

	maskTensor, err := onnxruntime.NewTensor(shape, flatMask)
	if err != nil {
		idsTensor.Destroy()
		return 0, 0, nil, pipeerrors.Wrap(err, "failed to create attention_mask tensor")
	}

	return batch, seqLen, []onnxruntime.Value{idsTensor, maskTensor}, nil
}

func destroyAll(values []onnxruntime.Value) {
	for _, v := range values {
		v.Destroy()
	}
}

// Destroy cleans up the ONNX session
func (m *Model) Destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
