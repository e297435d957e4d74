package checkpoint

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitnet-ml/digitnet/internal/nn"
	"github.com/digitnet-ml/digitnet/internal/tensor"
)

func testParams(t *testing.T) []*nn.Parameter {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	weight := nn.Xavier(4, 3, tensor.Shape{3, 4}, rng)
	bias := nn.Zeros(tensor.Shape{3})
	bias.Data()[1] = 0.5

	return []*nn.Parameter{
		nn.NewParameter("fc.weight", weight),
		nn.NewParameter("fc.bias", bias),
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")

	params := testParams(t)
	require.NoError(t, Save(path, params))

	// Fresh parameters with different values.
	restored := testParams(t)
	for _, p := range restored {
		p.Value().Zero()
	}

	require.NoError(t, Load(path, restored))
	for i, p := range restored {
		assert.Equal(t, params[i].Value().Data(), p.Value().Data(), "parameter %s", p.Name())
	}
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	params := testParams(t)
	require.NoError(t, Save(path, params))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = Load(path, params)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLoad_ShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, Save(path, testParams(t)))

	rng := rand.New(rand.NewSource(1))
	wrong := []*nn.Parameter{
		nn.NewParameter("fc.weight", nn.Xavier(4, 2, tensor.Shape{2, 4}, rng)),
		nn.NewParameter("fc.bias", nn.Zeros(tensor.Shape{3})),
	}

	err := Load(path, wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestLoad_UnknownParameter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, Save(path, testParams(t)))

	renamed := testParams(t)
	other := []*nn.Parameter{
		nn.NewParameter("conv.weight", renamed[0].Value()),
		nn.NewParameter("conv.bias", renamed[1].Value()),
	}

	err := Load(path, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected parameter")
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.ckpt"), testParams(t))
	assert.Error(t, err)
}
