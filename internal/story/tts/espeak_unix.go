//go:build unix

package tts

import "syscall"

// pauseProcess suspends eSpeak with SIGSTOP.
func (e *ESpeakEngine) pauseProcess() error {
	return e.cmd.Process.Signal(syscall.SIGSTOP)
}

// resumeProcess continues a suspended eSpeak with SIGCONT.
func (e *ESpeakEngine) resumeProcess() error {
	return e.cmd.Process.Signal(syscall.SIGCONT)
}
