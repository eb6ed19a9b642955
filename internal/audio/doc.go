// Package audio plays notification sounds when toasts are shown.
// It uses the beep library to play WAV, OGG and MP3 files with volume
// control and per-urgency sound configuration.
package audio
