package turn

// Player renders interviewer questions as audio. Play must return
// promptly; the audio subsystem reports natural completion through
// Controller.PlaybackFinished. Stop must return only once playback has
// actually halted.
type Player interface {
	Play(text string)
	Stop()
}

// Recorder captures candidate speech. Transcripts are delivered through
// Controller.PartialTranscript and Controller.SpeechEnd.
type Recorder interface {
	Start()
	Stop()
}

// eventAudio implements Player and Recorder by publishing commands for a
// remote audio bridge.
type eventAudio struct {
	emit func(kind EventKind, text string)
}

func (a eventAudio) Play(text string) { a.emit(EventSpeak, text) }
func (a eventAudio) Stop()            { a.emit(EventStopPlayback, "") }

type eventRecorder struct {
	emit func(kind EventKind, text string)
}

func (r eventRecorder) Start() { r.emit(EventStartCapture, "") }
func (r eventRecorder) Stop()  { r.emit(EventStopCapture, "") }
