//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"image"
	"syscall/js"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
	"github.com/himanishpuri/MediaDNA/internal/media"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorLengthMismatch
)

var pipeline *fingerprint.Pipeline

// hashImage hashes one RGBA frame, e.g. ImageData.data from a canvas.
// Returns: {error: number, data: {hash, hex} | string}
func hashImage(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: rgbaArray, width, height")
	}
	pixelsJS, widthJS, heightJS := args[0], args[1], args[2]
	if pixelsJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "rgbaArray must be a Uint8Array or Uint8ClampedArray")
	}
	if widthJS.Type() != js.TypeNumber || heightJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "width and height must be numbers")
	}

	width, height := widthJS.Int(), heightJS.Int()
	if width <= 0 || height <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid size: %dx%d", width, height))
	}
	if pixelsJS.Length() != width*height*4 {
		return makeErrorResponse(ErrorInvalidArgs,
			fmt.Sprintf("rgbaArray has %d bytes, expected %d", pixelsJS.Length(), width*height*4))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	js.CopyBytesToGo(img.Pix, pixelsJS)

	h, err := pipeline.HashImage(img)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Failed to hash image: %v", err))
	}

	data := js.Global().Get("Object").New()
	data.Set("hash", h.String())
	data.Set("hex", h.Hex())
	return makeResponse(data)
}

// hashAudio hashes PCM samples into per-segment hashes and a robust hash.
// Returns: {error: number, data: {hashes, robustHash} | string}
func hashAudio(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}
	audioDataJS, sampleRateJS, channelsJS := args[0], args[1], args[2]

	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber || channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}

	sampleRate := sampleRateJS.Int()
	channels := channelsJS.Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}

	track := &media.AudioTrack{Samples: samples, SampleRate: sampleRate}
	hashes, _, err := pipeline.HashSegments(context.Background(), track)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Failed to hash audio: %v", err))
	}

	hashArray := js.Global().Get("Array").New()
	for i, h := range hashes {
		hashArray.SetIndex(i, h.String())
	}
	data := js.Global().Get("Object").New()
	data.Set("hashes", hashArray)
	data.Set("robustHash", fingerprint.RobustHash(hashes))
	return makeResponse(data)
}

// compareHashes compares two hash strings.
// Returns: {error: number, data: {distance, similarity, areSimilar} | string}
func compareHashes(this js.Value, args []js.Value) any {
	if len(args) < 2 || args[0].Type() != js.TypeString || args[1].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 string arguments: hashA, hashB[, threshold]")
	}
	threshold := compare.DefaultImageThreshold
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		threshold = args[2].Float()
	}
	if threshold < 0 || threshold > 1 {
		return makeErrorResponse(ErrorInvalidArgs, "threshold must be within [0, 1]")
	}

	_, r, err := compare.CompareHashes(args[0].String(), args[1].String(), threshold)
	if err != nil {
		return makeErrorResponse(ErrorLengthMismatch, err.Error())
	}
	data := js.Global().Get("Object").New()
	data.Set("distance", r.Distance)
	data.Set("similarity", r.Similarity)
	data.Set("areSimilar", r.Similar)
	return makeResponse(data)
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")

	var err error
	cfg := fingerprint.DefaultConfig()
	cfg.Workers = 1
	pipeline, err = fingerprint.NewPipeline(cfg)
	if err != nil {
		if !console.IsUndefined() {
			console.Call("error", "MediaDNA WASM failed to initialize: "+err.Error())
		}
		return
	}

	done := make(chan struct{})

	js.Global().Set("mediadnaHashImage", js.FuncOf(hashImage))
	js.Global().Set("mediadnaHashAudio", js.FuncOf(hashAudio))
	js.Global().Set("mediadnaCompare", js.FuncOf(compareHashes))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "MediaDNA WASM module loaded and ready")
	}

	<-done
}
