package neat

import (
	"fmt"
	"math"
	"sort"
)

// ActivationFunc maps a node's summed input to its output.
type ActivationFunc func(x float64) float64

// ActivationFunctions maps function names to the actual activation functions.
// This allows configuration to specify activations by name.
var ActivationFunctions = map[string]ActivationFunc{
	"sigmoid":   Sigmoid,
	"tanh":      Tanh,
	"heaviside": Heaviside,
	"relu":      ReLU,
	"identity":  Identity,
	"clamped":   Clamped,
	"gaussian":  Gaussian,
	"sine":      Sine,
	"hat":       Hat,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function '%s', must be one of %v", name, ActivationNames())
}

// ActivationNames returns the registered activation names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(ActivationFunctions))
	for name := range ActivationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Heaviside is the unit step: 1 for x >= 0, else 0.
func Heaviside(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// Gaussian activation function.
func Gaussian(x float64) float64 {
	return math.Exp(-x * x / 2.0)
}

// Sine activation function.
func Sine(x float64) float64 {
	return math.Sin(x)
}

// Hat activation function (triangular pulse centered at 0).
func Hat(x float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

// Softmax rescales values in place to exp(x)/sum(exp). The maximum is
// subtracted first so large outputs do not overflow.
func Softmax(values []float64) {
	if len(values) == 0 {
		return
	}
	maxVal := MaxFloat(values)
	sum := 0.0
	for i, v := range values {
		values[i] = math.Exp(v - maxVal)
		sum += values[i]
	}
	for i := range values {
		values[i] /= sum
	}
}
