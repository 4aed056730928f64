package pipeline

import "context"

// Result is the classification of one input text.
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Backend runs the pretrained model. Predict returns one Result per text,
// in input order.
type Backend interface {
	Name() string
	Predict(ctx context.Context, texts []string) ([]Result, error)
	Close() error
}

// Outcome is the result of one classification call: either results for
// every input or the error that prevented them.
type Outcome struct {
	Results []Result
	Err     error
}

func Succeeded(results []Result) Outcome {
	if results == nil {
		results = []Result{}
	}
	return Outcome{Results: results}
}

func Failed(err error) Outcome {
	return Outcome{Err: err}
}

func (o Outcome) OK() bool {
	return o.Err == nil
}
