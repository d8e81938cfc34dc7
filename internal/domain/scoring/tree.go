package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// TreePredictor evaluates a decision tree exported as a JSON artifact.
// This is the default backend: it needs no native runtime and behaves
// identically everywhere, which keeps deployments and tests honest.
type TreePredictor struct {
	modelID string
	inputs  []string
	nodes   []treeNode
}

// treeNode is one node of the exported tree. Leaves have Feature == -1 and
// carry the predicted stress score in Value.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float32 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

type treeArtifact struct {
	ModelID string     `json:"model_id"`
	Inputs  []string   `json:"inputs"`
	Nodes   []treeNode `json:"nodes"`
}

// LoadTree reads a tree artifact from disk.
func LoadTree(path string) (*TreePredictor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrModelLoad, path, err)
	}
	defer f.Close()
	return NewTree(f)
}

// NewTree parses and validates a tree artifact.
func NewTree(r io.Reader) (*TreePredictor, error) {
	var artifact treeArtifact
	if err := json.NewDecoder(r).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: decoding artifact: %v", ErrModelLoad, err)
	}
	if len(artifact.Inputs) == 0 {
		return nil, fmt.Errorf("%w: artifact declares no inputs", ErrModelLoad)
	}
	if len(artifact.Nodes) == 0 {
		return nil, fmt.Errorf("%w: artifact has no nodes", ErrModelLoad)
	}
	for i, n := range artifact.Nodes {
		if n.Feature < 0 {
			continue // leaf
		}
		if n.Feature >= len(artifact.Inputs) {
			return nil, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrModelLoad, i, n.Feature, len(artifact.Inputs))
		}
		if n.Left < 0 || n.Left >= len(artifact.Nodes) || n.Right < 0 || n.Right >= len(artifact.Nodes) {
			return nil, fmt.Errorf("%w: node %d has out-of-range children", ErrModelLoad, i)
		}
		if n.Left <= i || n.Right <= i {
			return nil, fmt.Errorf("%w: node %d children must come after it", ErrModelLoad, i)
		}
	}
	return &TreePredictor{
		modelID: artifact.ModelID,
		inputs:  artifact.Inputs,
		nodes:   artifact.Nodes,
	}, nil
}

// ModelID returns the artifact's identifier.
func (t *TreePredictor) ModelID() string { return t.modelID }

// Width implements Predictor.
func (t *TreePredictor) Width() int { return len(t.inputs) }

// Predict walks the tree for one vector. "<=" goes left, matching the
// split convention of the training export.
func (t *TreePredictor) Predict(_ context.Context, vec []float32) (float64, error) {
	if len(vec) != len(t.inputs) {
		return 0, fmt.Errorf("vector has %d values, tree expects %d", len(vec), len(t.inputs))
	}
	i := 0
	for {
		n := t.nodes[i]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if vec[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
