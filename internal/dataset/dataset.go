// Package dataset loads the MNIST handwritten digit dataset and feeds it
// to the training loop in shuffled fixed-size minibatches.
package dataset

import (
	"fmt"
	"path/filepath"
)

// Image geometry of the MNIST dataset.
const (
	ImageRows   = 28
	ImageCols   = 28
	ImageSize   = ImageRows * ImageCols
	NumClasses  = 10
	maxPixel    = 255.0
	synthBright = 0.8
)

// Dataset holds aligned image and label slices.
//
// Images are flattened 28x28 grayscale pixels normalized to [0, 1];
// Labels holds the digit class for each image. The two slices always have
// the same length.
type Dataset struct {
	Images [][]float32 // [numSamples][784]
	Labels []int32     // [numSamples]
}

// Load reads a dataset from official MNIST IDX files under dir.
//
// With train=true it reads train-images-idx3-ubyte/train-labels-idx1-ubyte
// (60,000 samples), otherwise the t10k pair (10,000 samples). maxSamples
// limits the number of samples loaded; 0 loads everything.
func Load(dir string, train bool, maxSamples int) (*Dataset, error) {
	var imageFile, labelFile string
	if train {
		imageFile = filepath.Join(dir, "train-images-idx3-ubyte")
		labelFile = filepath.Join(dir, "train-labels-idx1-ubyte")
	} else {
		imageFile = filepath.Join(dir, "t10k-images-idx3-ubyte")
		labelFile = filepath.Join(dir, "t10k-labels-idx1-ubyte")
	}

	imagesRaw, err := readIDXImages(imageFile)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	labelsRaw, err := readIDXLabels(labelFile)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if len(imagesRaw) != len(labelsRaw) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(imagesRaw), len(labelsRaw))
	}

	numSamples := len(imagesRaw)
	if maxSamples > 0 && numSamples > maxSamples {
		numSamples = maxSamples
	}

	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		images[i] = make([]float32, len(imagesRaw[i]))
		for j, p := range imagesRaw[i] {
			images[i][j] = float32(p) / maxPixel
		}
		labels[i] = int32(labelsRaw[i])
	}

	return &Dataset{Images: images, Labels: labels}, nil
}

// Synthetic builds a small synthetic dataset with one banded pattern per
// digit class, repeated to reach n samples. It lets the harness run
// end-to-end without the MNIST files on disk.
func Synthetic(n int) *Dataset {
	images := make([][]float32, n)
	labels := make([]int32, n)

	for i := 0; i < n; i++ {
		digit := i % NumClasses
		img := make([]float32, ImageSize)

		// One bright horizontal band per class, position keyed by digit.
		startRow := digit * 2
		for row := startRow; row < startRow+8 && row < ImageRows; row++ {
			for col := 5; col < 23; col++ {
				img[row*ImageCols+col] = synthBright
			}
		}

		images[i] = img
		labels[i] = int32(digit)
	}

	return &Dataset{Images: images, Labels: labels}
}

// NumSamples returns the number of examples in the dataset.
func (d *Dataset) NumSamples() int {
	return len(d.Images)
}

// Split divides the dataset into a train and a validation part. ratio is
// the fraction assigned to validation, e.g. 0.2 for an 80/20 split. The
// returned datasets share storage with the original.
func (d *Dataset) Split(ratio float64) (train, val *Dataset) {
	splitIdx := int(float64(d.NumSamples()) * (1.0 - ratio))
	train = &Dataset{Images: d.Images[:splitIdx], Labels: d.Labels[:splitIdx]}
	val = &Dataset{Images: d.Images[splitIdx:], Labels: d.Labels[splitIdx:]}
	return train, val
}
