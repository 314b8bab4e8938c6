package service

// Result tags the outcome of one provider call with its source so fan-outs
// can keep successes and report failures without a sentinel value.
type Result[T any] struct {
	Source string
	Value  T
	Err    error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// Successful returns the values of the results that succeeded, in order.
func Successful[T any](results []Result[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Failures maps each failed source to its error text.
func Failures[T any](results []Result[T]) map[string]string {
	var out map[string]string
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[r.Source] = r.Err.Error()
	}
	return out
}
