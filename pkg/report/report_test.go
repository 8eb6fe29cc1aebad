package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"ferrocp/pkg/ferrocp"
)

func TestBuildSuccessResult(t *testing.T) {
	src := ferrocp.DeviceProfile{Kind: "ssd", TheoreticalReadMBPS: 500, SupportsZeroCopy: true}
	dst := ferrocp.DeviceProfile{Kind: "ssd", TheoreticalWriteMBPS: 500, SupportsZeroCopy: true}
	cs := ferrocp.CopyStats{FilesCopied: 3, BytesCopied: 1024, ActualTransferRateMbps: 480}

	rep := Build("copy", "/src", "/dst", src, dst, cs, nil, "1.0.0")

	if !rep.Result.Success {
		t.Error("expected Success=true when runErr is nil and Errors==0")
	}
	if rep.Result.Message != "completed successfully" {
		t.Errorf("Message = %q, want %q", rep.Result.Message, "completed successfully")
	}
	if rep.Result.PerformanceRating != Excellent {
		t.Errorf("PerformanceRating = %q, want %q (480/500 = 0.96)", rep.Result.PerformanceRating, Excellent)
	}
	if rep.Metadata.Digest == "" {
		t.Error("expected a non-empty content digest")
	}
}

func TestBuildFailureFromRunError(t *testing.T) {
	src := ferrocp.DeviceProfile{TheoreticalReadMBPS: 100}
	dst := ferrocp.DeviceProfile{TheoreticalWriteMBPS: 100}
	cs := ferrocp.CopyStats{}

	rep := Build("copy", "/src", "/dst", src, dst, cs, errors.New("disk full"), "1.0.0")

	if rep.Result.Success {
		t.Error("expected Success=false when runErr is non-nil")
	}
	if rep.Result.Message != "disk full" {
		t.Errorf("Message = %q, want %q", rep.Result.Message, "disk full")
	}
}

func TestBuildSuccessFalseWhenStatsHaveErrors(t *testing.T) {
	src := ferrocp.DeviceProfile{TheoreticalReadMBPS: 100}
	dst := ferrocp.DeviceProfile{TheoreticalWriteMBPS: 100}
	cs := ferrocp.CopyStats{Errors: 2}

	rep := Build("copy", "/src", "/dst", src, dst, cs, nil, "1.0.0")

	if rep.Result.Success {
		t.Error("expected Success=false when CopyStats.Errors > 0 even with a nil runErr")
	}
	if rep.Result.Message != "completed with errors" {
		t.Errorf("Message = %q, want %q", rep.Result.Message, "completed with errors")
	}
}

func TestBuildBottleneckIdentifiesSlowerSide(t *testing.T) {
	src := ferrocp.DeviceProfile{TheoreticalReadMBPS: 100}
	dst := ferrocp.DeviceProfile{TheoreticalWriteMBPS: 400}

	rep := Build("copy", "/src", "/dst", src, dst, ferrocp.CopyStats{}, nil, "1.0.0")

	if rep.PerformanceAnalysis.Bottleneck.Device != "source" {
		t.Errorf("Bottleneck.Device = %q, want %q", rep.PerformanceAnalysis.Bottleneck.Device, "source")
	}
	if rep.PerformanceAnalysis.ExpectedSpeedMbps != 100 {
		t.Errorf("ExpectedSpeedMbps = %v, want 100", rep.PerformanceAnalysis.ExpectedSpeedMbps)
	}
}

func TestBuildRecommendsStagingForNetworkDestination(t *testing.T) {
	src := ferrocp.DeviceProfile{Kind: "ssd", TheoreticalReadMBPS: 100, SupportsZeroCopy: true}
	dst := ferrocp.DeviceProfile{Kind: "network", TheoreticalWriteMBPS: 100, SupportsZeroCopy: false}

	rep := Build("copy", "/src", "/dst", src, dst, ferrocp.CopyStats{}, nil, "1.0.0")

	if len(rep.PerformanceAnalysis.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation for a network destination without zero-copy")
	}
	found := false
	for _, r := range rep.PerformanceAnalysis.Recommendations {
		if strings.Contains(r, "network share") {
			found = true
		}
	}
	if !found {
		t.Errorf("Recommendations = %q, want one about staging for a network share", rep.PerformanceAnalysis.Recommendations)
	}
}

func TestRatingBucketsByRatio(t *testing.T) {
	cases := []struct {
		ratio float64
		want  Rating
	}{
		{0.95, Excellent},
		{0.75, Good},
		{0.50, Fair},
		{0.10, Poor},
	}
	for _, c := range cases {
		got := rate(100, c.ratio*100)
		if got != c.want {
			t.Errorf("rate(100, %v) = %q, want %q", c.ratio*100, got, c.want)
		}
	}
}

func TestRatingPoorWhenExpectedIsZero(t *testing.T) {
	if got := rate(0, 50); got != Poor {
		t.Errorf("rate(0, 50) = %q, want %q", got, Poor)
	}
}

func TestJSONRoundTrips(t *testing.T) {
	src := ferrocp.DeviceProfile{Kind: "ssd", TheoreticalReadMBPS: 500}
	dst := ferrocp.DeviceProfile{Kind: "ssd", TheoreticalWriteMBPS: 500}
	rep := Build("sync", "/a", "/b", src, dst, ferrocp.CopyStats{FilesCopied: 1}, nil, "1.0.0")

	data, err := rep.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Metadata.Operation != "sync" {
		t.Errorf("decoded Operation = %q, want %q", decoded.Metadata.Operation, "sync")
	}
}
