// Package imports reads camera calibrations from external files into the
// matrices the synthesis and loss pipelines consume.
package imports

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StereoCalib is a calibrated stereo rig: per-side 3x3 camera matrices, the
// image size, and the 4x4 rigid transform mapping points from the left
// camera frame into the right camera frame.
type StereoCalib struct {
	Width  int
	Height int
	Left   *mat.Dense
	Right  *mat.Dense
	TLR    *mat.Dense
}

// Calibration file keys, KITTI-style: one "key: values" line per entry with
// whitespace-separated numbers in row-major order.
//
//	S:    width height
//	K_L:  9 values, left camera matrix
//	K_R:  9 values, right camera matrix
//	R_LR: 9 values, left-to-right rotation
//	T_LR: 3 values, left-to-right translation
const (
	keySize           = "S"
	keyLeftIntrinsic  = "K_L"
	keyRightIntrinsic = "K_R"
	keyRotation       = "R_LR"
	keyTranslation    = "T_LR"
)

// ReadStereoCalib parses a stereo calibration file.
func ReadStereoCalib(file string) (*StereoCalib, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open calibration file")
	}
	defer f.Close()

	values := make(map[string][]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, rest, found := strings.Cut(line, ":")
		if !found {
			return nil, errors.Errorf("malformed calibration line %q", line)
		}
		key = strings.TrimSpace(key)
		fields := strings.Fields(rest)
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "value %q for key %q", field, key)
			}
			row[i] = v
		}
		values[key] = row
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read calibration file")
	}

	size, err := entry(values, keySize, 2)
	if err != nil {
		return nil, err
	}
	left, err := entry(values, keyLeftIntrinsic, 9)
	if err != nil {
		return nil, err
	}
	right, err := entry(values, keyRightIntrinsic, 9)
	if err != nil {
		return nil, err
	}
	rot, err := entry(values, keyRotation, 9)
	if err != nil {
		return nil, err
	}
	trans, err := entry(values, keyTranslation, 3)
	if err != nil {
		return nil, err
	}

	tlr := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			tlr.Set(i, j, rot[i*3+j])
		}
		tlr.Set(i, 3, trans[i])
	}
	tlr.Set(3, 3, 1)

	return &StereoCalib{
		Width:  int(size[0]),
		Height: int(size[1]),
		Left:   mat.NewDense(3, 3, left),
		Right:  mat.NewDense(3, 3, right),
		TLR:    tlr,
	}, nil
}

func entry(values map[string][]float64, key string, want int) ([]float64, error) {
	row, ok := values[key]
	if !ok {
		return nil, errors.Errorf("calibration key %q missing", key)
	}
	if len(row) != want {
		return nil, errors.Errorf("calibration key %q has %d values, want %d", key, len(row), want)
	}
	return row, nil
}

// IntrinsicBatch replicates a camera matrix for every sample in a batch.
func IntrinsicBatch(k *mat.Dense, batch int) []*mat.Dense {
	out := make([]*mat.Dense, batch)
	for i := range out {
		out[i] = mat.DenseCopyOf(k)
	}
	return out
}
