//go:build !unix

package tts

import "errors"

var errPauseUnsupported = errors.New("pause is not supported on this platform")

func (e *ESpeakEngine) pauseProcess() error {
	return errPauseUnsupported
}

func (e *ESpeakEngine) resumeProcess() error {
	return errPauseUnsupported
}
