//go:build headless

package main

// SpeakerOutput without a sound device drains the queue at the pace of
// whoever calls Read.
type SpeakerOutput struct {
	queue   *AudioQueue
	playing bool
}

func NewSpeakerOutput(sampleRate int, queue *AudioQueue) (*SpeakerOutput, error) {
	return &SpeakerOutput{queue: queue}, nil
}

func (s *SpeakerOutput) Read(p []byte) (int, error) {
	for range len(p) / 4 {
		s.queue.NextSample()
	}
	return len(p) &^ 3, nil
}

func (s *SpeakerOutput) Play() { s.playing = true }

func (s *SpeakerOutput) Playing() bool { return s.playing }

func (s *SpeakerOutput) Close() error {
	s.playing = false
	return nil
}
