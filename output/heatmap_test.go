package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChristianF88/cidrfold/cidr"
)

func TestCoverageBy16(t *testing.T) {
	counts := CoverageBy16([]cidr.AddressRange{
		{IP: 0x0A000000, PrefixLen: 24}, // 10.0.0.0/24
		{IP: 0x0A000100, PrefixLen: 32}, // 10.0.1.0/32
		{IP: 0xAC100000, PrefixLen: 15}, // 172.16.0.0/15
		{IP: 0xFFFF0000, PrefixLen: 16}, // 255.255.0.0/16
	})

	tests := []struct {
		a, b int
		want uint32
	}{
		{10, 0, 257},
		{10, 1, 0},
		{172, 16, 65536},
		{172, 17, 65536},
		{172, 18, 0},
		{255, 255, 65536},
	}
	for _, tt := range tests {
		if got := counts[tt.a][tt.b]; got != tt.want {
			t.Errorf("counts[%d][%d] = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCoverageBy16_WholeSpace(t *testing.T) {
	counts := CoverageBy16([]cidr.AddressRange{{IP: 0, PrefixLen: 0}})
	if counts[0][0] != 65536 || counts[255][255] != 65536 || counts[128][7] != 65536 {
		t.Error("a /0 should cover every /16 completely")
	}
}

func TestPlotHeatmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatmap.html")
	err := PlotHeatmap([]cidr.AddressRange{{IP: 0x0A000000, PrefixLen: 8}}, path)
	if err != nil {
		t.Fatalf("PlotHeatmap: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "10.0.0.0/16") {
		t.Error("heatmap does not mention covered /16 ranges")
	}
}

func TestPlotHeatmap_BadPath(t *testing.T) {
	err := PlotHeatmap(nil, filepath.Join(t.TempDir(), "missing", "heatmap.html"))
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
