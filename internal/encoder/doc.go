// Package encoder turns captured image payloads into encoded media segments.
//
// The Encoder interface keeps the codec pluggable: production uses an ffmpeg
// subprocess per video stream, tests substitute a stub. The Batcher groups
// consecutive episodes' encode work to amortize codec startup without
// affecting metadata ordering; that guarantee lives in the saver.
package encoder
