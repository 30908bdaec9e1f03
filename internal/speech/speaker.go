package speech

import (
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Speaker plays a text string aloud. Playback is asynchronous: done is
// invoked once, when playback finishes or fails. Cancel stops whatever is
// currently playing, globally.
type Speaker interface {
	Speak(text, lang string, done func(err error)) error
	Cancel()
}

// Nop discards playback requests. Completion is reported immediately.
type Nop struct{}

func (Nop) Speak(_, _ string, done func(err error)) error {
	if done != nil {
		go done(nil)
	}
	return nil
}

func (Nop) Cancel() {}

// Espeak shells out to the espeak binary, one utterance at a time.
type Espeak struct {
	binary string
	logger *zap.Logger

	mu      sync.Mutex
	current *exec.Cmd
}

func NewEspeak(logger *zap.Logger) *Espeak {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Espeak{binary: "espeak", logger: logger}
}

func (e *Espeak) Speak(text, lang string, done func(err error)) error {
	cmd := exec.Command(e.binary, "-v", lang, text)
	if err := cmd.Start(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.current != nil && e.current.Process != nil {
		e.current.Process.Kill()
	}
	e.current = cmd
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		if e.current == cmd {
			e.current = nil
		}
		e.mu.Unlock()

		if err != nil {
			e.logger.Debug("speech playback ended with error", zap.Error(err))
		}
		if done != nil {
			done(err)
		}
	}()

	return nil
}

func (e *Espeak) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && e.current.Process != nil {
		e.current.Process.Kill()
		e.current = nil
	}
}
