// Package loss turns view synthesis into a self-supervision signal. A
// TotalLoss owns a configured list of evaluators, each a pure function of
// (features, predictions, augmented data) producing one loss value per batch
// sample; the total is their weighted elementwise sum.
//
// Available evaluators: photometric L1 and SSIM against the synthesized
// target views, edge-aware disparity smoothness, stereo cross-view
// photometric consistency through the known left-right extrinsic, and stereo
// pose consistency against that extrinsic. Evaluator names are resolved to
// concrete implementations once, at construction; an unknown name fails
// before any batch is processed.
package loss
