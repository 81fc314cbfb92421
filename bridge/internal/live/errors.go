package live

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies bus errors for telemetry
type ErrorCategory int

const (
	// ErrCategorySource indicates the media could not be read (bad URI,
	// missing file, permission, transport failure)
	ErrCategorySource ErrorCategory = iota
	// ErrCategoryDecode indicates the media was read but could not be
	// decoded (missing plugin, corrupt stream)
	ErrCategoryDecode
	// ErrCategoryNegotiation indicates the decoded stream could not be
	// converted to the requested output caps
	ErrCategoryNegotiation
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategorySource:
		return "source"
	case ErrCategoryDecode:
		return "decode"
	case ErrCategoryNegotiation:
		return "negotiation"
	default:
		return "unknown"
	}
}

// ClassifyBusError categorizes a GStreamer bus error so reconnectable source
// failures can be told apart from unrecoverable format problems.
//
// go-gst's GError does not expose Domain(), so classification relies on
// message heuristics.
func ClassifyBusError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}

	errMsg := strings.ToLower(gerr.Error())
	debugStr := strings.ToLower(gerr.DebugString())

	// Negotiation first: its messages often also mention "decode"
	if containsNegotiationKeywords(errMsg, debugStr) {
		return ErrCategoryNegotiation
	}
	if containsDecodeKeywords(errMsg, debugStr) {
		return ErrCategoryDecode
	}
	if containsSourceKeywords(errMsg, debugStr) {
		return ErrCategorySource
	}

	return ErrCategoryUnknown
}

func containsSourceKeywords(errMsg, debugStr string) bool {
	keywords := []string{
		"resource",
		"not found",
		"no such file",
		"could not open",
		"could not read",
		"permission",
		"uri",
		"http",
		"connection",
		"timeout",
	}

	combined := errMsg + " " + debugStr
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

func containsDecodeKeywords(errMsg, debugStr string) bool {
	keywords := []string{
		"decode",
		"codec",
		"h264",
		"h265",
		"vp8",
		"vp9",
		"parse",
		"demux",
		"no decoder",
		"missing plugin",
		"corrupt",
	}

	combined := errMsg + " " + debugStr
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

func containsNegotiationKeywords(errMsg, debugStr string) bool {
	keywords := []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"not-negotiated",
	}

	combined := errMsg + " " + debugStr
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}
