package safetensors

import (
	"fmt"
	"math"
)

// Sequence-classification checkpoints store the output projection under
// these names (BertForSequenceClassification and most encoder heads).
const (
	ClassifierWeight = "classifier.weight"
	ClassifierBias   = "classifier.bias"
)

// CheckClassifierHead verifies the checkpoint carries a classification head
// with numLabels outputs and that its bias holds finite values.
func (f *File) CheckClassifierHead(numLabels int) error {
	w, ok := f.Tensor(ClassifierWeight)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTensorNotFound, ClassifierWeight)
	}
	if len(w.Shape) != 2 {
		return fmt.Errorf("%s: expected rank 2, got shape %v", ClassifierWeight, w.Shape)
	}
	if w.Shape[0] != numLabels {
		return fmt.Errorf("%s: head has %d outputs, want %d labels", ClassifierWeight, w.Shape[0], numLabels)
	}

	bias, info, err := f.TensorF32(ClassifierBias)
	if err != nil {
		return err
	}
	if len(info.Shape) != 1 || info.Shape[0] != numLabels {
		return fmt.Errorf("%s: shape %v, want [%d]", ClassifierBias, info.Shape, numLabels)
	}
	for i, v := range bias {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%s[%d]: non-finite value %v", ClassifierBias, i, v)
		}
	}
	return nil
}
