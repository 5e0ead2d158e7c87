package embed

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv tracks process-wide ONNX Runtime initialization. The runtime can only
// be initialized once per process.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession holds a dynamic inference session for a BERT-style encoder with
// inputs input_ids/attention_mask/token_type_ids and a single
// [batch, seq, dim] output.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	embedDim   int64
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx runtime init: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}

	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range inputNames {
		if !have[name] {
			return nil, fmt.Errorf("model missing required input %q", name)
		}
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("expected [batch, seq, dim] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	_ = opts.SetIntraOpNumThreads(2)
	_ = opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputNames: inputNames,
		embedDim:   dims[2],
	}, nil
}

// infer runs one single-sequence inference. The input slices have length
// seqLen; the returned slice is the flat [seqLen * embedDim] hidden state.
func (s *onnxSession) infer(inputIDs, attentionMask, tokenTypeIDs []int64, seqLen int64) ([]float32, error) {
	shape := ort.NewShape(1, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run(
		[]ort.Value{tIDs, tMask, tTypes},
		[]ort.Value{tOut},
	); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
