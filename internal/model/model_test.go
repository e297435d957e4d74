package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

func TestNew(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	m, err := New("simple", rng)
	require.NoError(t, err)
	assert.IsType(t, &SimpleCNN{}, m)

	m, err = New("lenet5", rng)
	require.NoError(t, err)
	assert.IsType(t, &LeNet5{}, m)

	_, err = New("resnet", rng)
	assert.Error(t, err)
}

func TestSimpleCNN_ForwardShape(t *testing.T) {
	m := NewSimpleCNN(rand.New(rand.NewSource(1)))

	// Flat input is reshaped internally.
	flat := tensor.New(tensor.Shape{3, 784})
	logits := m.Forward(flat)
	assert.True(t, logits.Shape().Equal(tensor.Shape{3, 10}), "got %v", logits.Shape())

	nchw := tensor.New(tensor.Shape{2, 1, 28, 28})
	logits = m.Forward(nchw)
	assert.True(t, logits.Shape().Equal(tensor.Shape{2, 10}), "got %v", logits.Shape())
}

func TestSimpleCNN_ParameterCount(t *testing.T) {
	m := NewSimpleCNN(rand.New(rand.NewSource(1)))

	// conv: 8*1*3*3 + 8 = 80; fc: 1352*10 + 10 = 13530.
	assert.Equal(t, 13610, CountParameters(m))
	assert.Len(t, m.Parameters(), 4)
}

func TestLeNet5_ForwardShape(t *testing.T) {
	m := NewLeNet5(rand.New(rand.NewSource(1)))

	input := tensor.New(tensor.Shape{4, 1, 28, 28})
	logits := m.Forward(input)
	assert.True(t, logits.Shape().Equal(tensor.Shape{4, 10}), "got %v", logits.Shape())
}

func TestLeNet5_ParameterCount(t *testing.T) {
	m := NewLeNet5(rand.New(rand.NewSource(1)))

	// conv1: 6*1*5*5+6 = 156; conv2: 16*6*5*5+16 = 2416;
	// fc1: 256*120+120 = 30840; fc2: 120*84+84 = 10164;
	// fc3: 84*10+10 = 850.
	assert.Equal(t, 44426, CountParameters(m))
	assert.Len(t, m.Parameters(), 10)
}

func TestModel_SeedDeterminism(t *testing.T) {
	input := tensor.New(tensor.Shape{1, 784})
	for i := range input.Data() {
		input.Data()[i] = float32(i%255) / 255
	}

	a := NewLeNet5(rand.New(rand.NewSource(42)))
	b := NewLeNet5(rand.New(rand.NewSource(42)))

	outA := a.Forward(input)
	outB := b.Forward(input)
	assert.Equal(t, outA.Data(), outB.Data())
}

func TestModel_BackwardAccumulatesGradients(t *testing.T) {
	m := NewLeNet5(rand.New(rand.NewSource(5)))

	input := tensor.New(tensor.Shape{2, 1, 28, 28})
	for i := range input.Data() {
		input.Data()[i] = float32(i%100) / 100
	}

	logits := m.Forward(input)
	criterion := nn.NewCrossEntropyLoss()
	criterion.Forward(logits, []int32{3, 7})
	m.Backward(criterion.Backward())

	// Every layer must receive a non-zero gradient somewhere.
	for _, p := range m.Parameters() {
		nonZero := false
		for _, g := range p.Grad().Data() {
			if g != 0 {
				nonZero = true
				break
			}
		}
		assert.True(t, nonZero, "parameter %s got no gradient", p.Name())
	}
}

func TestModel_InvalidInputPanics(t *testing.T) {
	m := NewSimpleCNN(rand.New(rand.NewSource(1)))
	bad := tensor.New(tensor.Shape{784})
	assert.Panics(t, func() { m.Forward(bad) })
}
