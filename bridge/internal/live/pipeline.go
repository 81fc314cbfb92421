package live

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Acceleration modes. Mirrors the public bridge constants so this package
// stays import-cycle free.
const (
	AccelAuto = iota
	AccelVAAPI
	AccelSoftware
)

// pipelineParts groups the elements a Surface needs to reach after
// construction.
type pipelineParts struct {
	pipeline *gst.Pipeline
	source   *gst.Element
	convert  *gst.Element
	sink     *app.Sink
}

// buildPipeline creates the decode pipeline:
//
//	uridecodebin → videoconvert → videoscale → capsfilter(RGB) → appsink
//
// uridecodebin has dynamic pads, so the source→videoconvert link happens in
// the pad-added callback once the media's video stream is exposed.
func buildPipeline(cfg Config) (*pipelineParts, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	source, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, fmt.Errorf("failed to create uridecodebin: %w", err)
	}
	source.SetProperty("uri", cfg.URI)
	// Video only: audio streams stay unexposed so the pipeline never waits
	// on an audio sink that does not exist.
	source.SetProperty("expose-all-streams", false)
	source.SetProperty("caps", gst.NewCapsFromString("video/x-raw"))
	if cfg.Acceleration == AccelSoftware {
		source.SetProperty("force-sw-decoders", true)
		slog.Debug("live: software decoding forced")
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	convert.SetProperty("n-threads", 0) // auto-detect cores

	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := buildOutputCaps(cfg.Width, cfg.Height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	// sync=true paces delivery against the pipeline clock, which is what a
	// visible surface wants. max-buffers+drop keep a stalled consumer from
	// wedging the pipeline.
	appsink.SetProperty("sync", true)
	appsink.SetProperty("max-buffers", 2)
	appsink.SetProperty("drop", true)
	appsink.SetProperty("qos", true)

	pipeline.AddMany(
		source,
		convert,
		scale,
		capsfilter,
		appsink.Element,
	)

	// Link static elements (uridecodebin is linked in pad-added).
	if err := gst.ElementLinkMany(
		convert,
		scale,
		capsfilter,
		appsink.Element,
	); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	slog.Debug("live: pipeline created", "caps", capsStr, "acceleration", cfg.Acceleration)

	return &pipelineParts{
		pipeline: pipeline,
		source:   source,
		convert:  convert,
		sink:     appsink,
	}, nil
}

// buildOutputCaps returns the appsink caps string. Zero dimensions leave the
// media at its native resolution.
func buildOutputCaps(width, height int) string {
	if width > 0 && height > 0 {
		return fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", width, height)
	}
	return "video/x-raw,format=RGB"
}

// onPadAdded links a fresh uridecodebin pad to the videoconvert input. Only
// the first video pad links; the converter's sink pad refuses a second link
// and the extra stream is ignored.
func onPadAdded(srcPad *gst.Pad, convert *gst.Element) {
	slog.Debug("live: pad-added signal received", "pad", srcPad.GetName())

	sinkPad := convert.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("live: failed to get sink pad from videoconvert")
		return
	}
	if sinkPad.IsLinked() {
		slog.Debug("live: ignoring extra stream pad", "pad", srcPad.GetName())
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("live: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}

	slog.Debug("live: pads linked", "src_pad", srcPad.GetName())
}

// checkGStreamerAvailable verifies the GStreamer runtime responds before any
// pipeline work starts, so a missing installation fails with a clear error.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("gstreamer not available: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// checkVAAPIAvailable reports whether VAAPI decode elements exist. Used for
// logging only; uridecodebin picks decoders by rank.
func checkVAAPIAvailable() bool {
	gst.Init(nil)

	decoder, err := gst.NewElement("vaapih264dec")
	if err != nil {
		return false
	}
	decoder.SetState(gst.StateNull)
	return true
}
