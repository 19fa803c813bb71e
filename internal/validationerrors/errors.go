// Package validationerrors holds the sentinel errors shared between the stager,
// the runner and the API layer.
package validationerrors

import "errors"

var ErrNoFile = errors.New("no file provided")
var ErrInvalidExtension = errors.New("invalid file type, only .bpmn files are allowed")
var ErrUploadTooLarge = errors.New("upload exceeds the size limit")
var ErrTimeout = errors.New("validation timed out")
var ErrRunnerFailure = errors.New("validator failed to run")
var ErrConfiguration = errors.New("validator configuration could not be written")
var ErrStagerNotInitialized = errors.New("stager has not been initialized")
var ErrRunnerNotInitialized = errors.New("runner has not been initialized")
