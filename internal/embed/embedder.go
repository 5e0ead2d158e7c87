// Package embed produces fixed-size sentence embeddings from log text by
// running a BERT-style model through ONNX Runtime: tokenize → inference →
// masked mean pooling → L2 normalization. Model artifacts are loaded eagerly
// at construction; a missing artifact is a startup failure, never a per-call
// one.
package embed

import (
	"fmt"
	"math"
)

// Embedder turns text into a fixed-size numeric vector.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Close() error
}

// ONNXEmbedder wraps an ONNX Runtime session and a WordPiece tokenizer.
// Sessions are safe for concurrent Run calls, so one ONNXEmbedder serves all
// request goroutines.
type ONNXEmbedder struct {
	session *onnxSession
	tok     *tokenizer
}

// New loads the ONNX model and vocabulary and returns a ready embedder.
// libPath locates the ONNX Runtime shared library; when empty it is resolved
// next to the model file.
func New(modelPath, vocabPath, libPath string) (*ONNXEmbedder, error) {
	sess, err := newONNXSession(modelPath, libPath)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		_ = sess.close()
		return nil, fmt.Errorf("embed: %w", err)
	}

	return &ONNXEmbedder{session: sess, tok: tok}, nil
}

// Dim returns the embedding dimensionality.
func (e *ONNXEmbedder) Dim() int {
	return int(e.session.embedDim)
}

// Embed produces one embedding vector for the given text.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	ids, mask, typeIDs, seqLen := e.tok.tokenize(text)

	hidden, err := e.session.infer(ids, mask, typeIDs, seqLen)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return meanPool(hidden, mask, int(e.session.embedDim)), nil
}

// Close releases the ONNX session.
func (e *ONNXEmbedder) Close() error {
	return e.session.close()
}

// meanPool averages token vectors over unmasked positions and L2-normalizes
// the result, matching the pooling the embedding model was exported with.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for pos, m := range mask {
		if m != 1 {
			continue
		}
		count++
		base := pos * dim
		for i := 0; i < dim; i++ {
			out[i] += hidden[base+i]
		}
	}
	if count == 0 {
		return out
	}

	var norm float64
	for i := range out {
		out[i] /= count
		norm += float64(out[i]) * float64(out[i])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}
