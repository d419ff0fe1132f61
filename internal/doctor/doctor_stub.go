//go:build !whisper

package doctor

func checkPortAudio() Result {
	return Result{Name: "portaudio", Pass: false, Detail: "built without '-tags whisper'; audio checks skipped"}
}
