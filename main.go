// Command vode runs the self-supervision core on a snippet of real images:
// it loads a stereo calibration and an ordered list of frames (sources first,
// target last), fabricates constant-depth and identity-pose predictions, and
// reports the multi-scale photometric and smoothness losses. It exercises the
// full synthesis path end to end without a trained network.
package main

import (
	"flag"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/geometry"
	"github.com/WELLBEINGLWB/vode-2020/imports"
	"github.com/WELLBEINGLWB/vode-2020/loss"
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// Network input resolution; multiples of 8 so all four depth scales divide.
const (
	imWidth  = 416
	imHeight = 128
)

var depthScales = []int{1, 2, 4, 8}

func main() {
	calibPath := flag.String("calib", "calibration.txt", "stereo calibration file")
	depth := flag.Float64("depth", 5.0, "constant scene depth in meters")
	verbose := flag.Bool("v", false, "trace synthesis stages")
	flag.Parse()

	logger := golog.NewLogger("vode")
	frames := flag.Args()
	if len(frames) < 2 {
		logger.Fatal("need at least two frames: sources first, target last")
	}

	calib, err := imports.ReadStereoCalib(*calibPath)
	if err != nil {
		logger.Fatal(err)
	}
	intrinsic := fitIntrinsic(calib)
	logger.Infof("camera matrix at %dx%d:\n%v", imWidth, imHeight, geometry.FormatMatrix(intrinsic))

	stacked, err := loadSnippet(frames)
	if err != nil {
		logger.Fatal(err)
	}

	numSrc := len(frames) - 1
	depthMS, dispMS := constantPyramids(imHeight, imWidth, *depth)
	pose := tensor.New(1, numSrc, geometry.PoseDim)

	cfg := loss.Config{
		Terms: []loss.Term{
			{Name: "L1", Weight: 1},
			{Name: "SSIM", Weight: 1},
			{Name: "smoothe", Weight: 0.5},
		},
	}
	if *verbose {
		cfg.Log = logger
	}
	total, err := loss.New(cfg)
	if err != nil {
		logger.Fatal(err)
	}

	features := &loss.Features{
		Image:     stacked,
		Intrinsic: imports.IntrinsicBatch(intrinsic, 1),
	}
	preds := &loss.Predictions{
		DepthMS: depthMS,
		DispMS:  dispMS,
		Pose:    pose,
	}
	lossBatch, losses, err := total.Compute(features, preds)
	if err != nil {
		logger.Fatal(err)
	}

	for i, term := range cfg.Terms {
		logger.Infof("%-8s %.6f", term.Name, losses[i].At(0))
	}
	logger.Infof("total    %.6f", lossBatch.At(0))
}

// fitIntrinsic rescales the calibrated left camera matrix to the network
// input resolution.
func fitIntrinsic(calib *imports.StereoCalib) *mat.Dense {
	sx := float64(imWidth) / float64(calib.Width)
	sy := float64(imHeight) / float64(calib.Height)
	k := mat.DenseCopyOf(calib.Left)
	for j := 0; j < 3; j++ {
		k.Set(0, j, k.At(0, j)*sx)
		k.Set(1, j, k.At(1, j)*sy)
	}
	return k
}

// loadSnippet decodes the frames, rescales them to the network resolution
// and stacks them along the height axis as one batch sample with values in
// [0, 1].
func loadSnippet(paths []string) (*tensor.Dense, error) {
	stacked := tensor.New(1, len(paths)*imHeight, imWidth, 3)
	data := stacked.Data()
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open frame")
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decode frame %s", path)
		}
		scaled := image.NewRGBA(image.Rect(0, 0, imWidth, imHeight))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		base := i * imHeight * imWidth * 3
		for y := 0; y < imHeight; y++ {
			for x := 0; x < imWidth; x++ {
				o := scaled.PixOffset(x, y)
				p := base + (y*imWidth+x)*3
				data[p] = float64(scaled.Pix[o]) / 255
				data[p+1] = float64(scaled.Pix[o+1]) / 255
				data[p+2] = float64(scaled.Pix[o+2]) / 255
			}
		}
	}
	return stacked, nil
}

// constantPyramids fabricates matching depth and disparity pyramids with a
// uniform depth everywhere.
func constantPyramids(height, width int, depth float64) (depthMS, dispMS []*tensor.Dense) {
	for _, s := range depthScales {
		d := tensor.New(1, height/s, width/s, 1)
		d.Fill(depth)
		depthMS = append(depthMS, d)
		disp := tensor.New(1, height/s, width/s, 1)
		disp.Fill(1 / depth)
		dispMS = append(dispMS, disp)
	}
	return depthMS, dispMS
}
