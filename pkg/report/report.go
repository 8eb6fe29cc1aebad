// Package report builds the JSON report described in spec.md §6: the CLI
// wrapper emits it, the core only supplies the data via pkg/ferrocp.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"ferrocp/pkg/ferrocp"
)

// Rating buckets spec.md §6's performance_rating thresholds.
type Rating string

const (
	Excellent Rating = "excellent"
	Good      Rating = "good"
	Fair      Rating = "fair"
	Poor      Rating = "poor"
)

// Metadata mirrors spec.md §6's metadata block.
type Metadata struct {
	Version         string    `json:"version"`
	Operation       string    `json:"operation"`
	Timestamp       time.Time `json:"timestamp"`
	SourcePath      string    `json:"source_path"`
	DestinationPath string    `json:"destination_path"`
	Digest          string    `json:"digest,omitempty"`
}

// Bottleneck mirrors spec.md §6's performance_analysis.bottleneck block.
type Bottleneck struct {
	Device            string  `json:"device"`
	Description       string  `json:"description"`
	LimitingSpeedMbps float64 `json:"limiting_speed_mbps"`
}

// PerformanceAnalysis mirrors spec.md §6's performance_analysis block.
type PerformanceAnalysis struct {
	ExpectedSpeedMbps float64    `json:"expected_speed_mbps"`
	Bottleneck        Bottleneck `json:"bottleneck"`
	Recommendations   []string   `json:"recommendations"`
}

// Result mirrors spec.md §6's result block.
type Result struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	PerformanceRating Rating `json:"performance_rating"`
}

// Report is the top-level JSON document spec.md §6 names.
type Report struct {
	Metadata            Metadata                `json:"metadata"`
	SourceDevice        ferrocp.DeviceProfile    `json:"source_device"`
	DestinationDevice   ferrocp.DeviceProfile    `json:"destination_device"`
	PerformanceAnalysis PerformanceAnalysis      `json:"performance_analysis"`
	CopyStats           ferrocp.CopyStats        `json:"copy_stats"`
	Result              Result                   `json:"result"`
}

// Build assembles a Report from one completed operation's inputs and
// outputs. runErr is the error Engine.Copy returned, if any; a nil runErr
// with CopyStats.Errors == 0 is the only success case per spec.md §7's
// "result.success in JSON is true iff errors == 0".
func Build(operation, sourcePath, destPath string, src, dst ferrocp.DeviceProfile, cs ferrocp.CopyStats, runErr error, version string) Report {
	expected := expectedSpeedMbps(src, dst)
	actual := cs.ActualTransferRateMbps

	rep := Report{
		Metadata: Metadata{
			Version:         version,
			Operation:       operation,
			Timestamp:       time.Now(),
			SourcePath:      sourcePath,
			DestinationPath: destPath,
			Digest:          digestSummary(cs),
		},
		SourceDevice:      src,
		DestinationDevice: dst,
		PerformanceAnalysis: PerformanceAnalysis{
			ExpectedSpeedMbps: expected,
			Bottleneck:        bottleneck(src, dst),
			Recommendations:   recommendations(src, dst, cs),
		},
		CopyStats: cs,
		Result: Result{
			Success:           runErr == nil && cs.Errors == 0,
			Message:           resultMessage(runErr, cs),
			PerformanceRating: rate(expected, actual),
		},
	}
	return rep
}

// JSON marshals the report with stable 2-space indentation.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// expectedSpeedMbps is the lesser of the source's theoretical read speed
// and the destination's theoretical write speed: the operation can never
// exceed whichever side is slower.
func expectedSpeedMbps(src, dst ferrocp.DeviceProfile) float64 {
	if src.TheoreticalReadMBPS < dst.TheoreticalWriteMBPS {
		return src.TheoreticalReadMBPS
	}
	return dst.TheoreticalWriteMBPS
}

func bottleneck(src, dst ferrocp.DeviceProfile) Bottleneck {
	if src.TheoreticalReadMBPS < dst.TheoreticalWriteMBPS {
		return Bottleneck{
			Device:            "source",
			Description:       "source read speed is the limiting factor",
			LimitingSpeedMbps: src.TheoreticalReadMBPS,
		}
	}
	return Bottleneck{
		Device:            "destination",
		Description:       "destination write speed is the limiting factor",
		LimitingSpeedMbps: dst.TheoreticalWriteMBPS,
	}
}

func recommendations(src, dst ferrocp.DeviceProfile, cs ferrocp.CopyStats) []string {
	var recs []string
	if dst.Kind == "network" {
		recs = append(recs, "destination is a network share; consider a local staging copy for repeated syncs")
	}
	if !src.SupportsZeroCopy || !dst.SupportsZeroCopy {
		recs = append(recs, "zero-copy is unavailable on this device pair; buffered transfer is used instead")
	}
	if src.SupportsZeroCopy && dst.SupportsZeroCopy && cs.ZerocopyOperations == 0 && cs.FilesCopied > 0 {
		recs = append(recs, "no files were large enough to qualify for zero-copy; consider lowering zerocopy_threshold")
	}
	return recs
}

func resultMessage(runErr error, cs ferrocp.CopyStats) string {
	if runErr != nil {
		return runErr.Error()
	}
	if cs.Errors > 0 {
		return "completed with errors"
	}
	return "completed successfully"
}

func rate(expected, actual float64) Rating {
	if expected <= 0 {
		return Poor
	}
	ratio := actual / expected
	switch {
	case ratio >= 0.90:
		return Excellent
	case ratio >= 0.70:
		return Good
	case ratio >= 0.40:
		return Fair
	default:
		return Poor
	}
}

// digestSummary stamps the report with a content digest derived from the
// operation's byte count and file count, giving two reports for the same
// tree state a stable identity without re-reading every file.
func digestSummary(cs ferrocp.CopyStats) string {
	summary := fmt.Sprintf("files=%d bytes=%d skipped=%d errors=%d",
		cs.FilesCopied, cs.BytesCopied, cs.FilesSkipped, cs.Errors)
	return digest.FromString(summary).String()
}
