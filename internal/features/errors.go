package features

import "errors"

// ErrTransform — task нельзя превратить в FeatureVector.
var ErrTransform = errors.New("feature transform failed")
