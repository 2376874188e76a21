package anyvc

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestDiagnosticsSummary(t *testing.T) {
	d := &Diagnostics{
		Base:      []float64{1, 2, 3, 4},
		Denoised:  []float64{-1, 1},
		AlphasBar: nil,
		NullMask:  []bool{true, false, false, true},
	}
	summary := d.Summary()
	if _, ok := summary[AlphasBarKey]; ok {
		t.Error("empty arrays should be omitted")
	}
	base := summary[BaseKey]
	if base.Mean != 2.5 || base.Min != 1 || base.Max != 4 {
		t.Errorf("unexpected base stats: %+v", base)
	}
	if math.Abs(base.StdDev-math.Sqrt(5.0/3)) > 1e-8 {
		t.Errorf("unexpected base std: %f", base.StdDev)
	}
	if frac := d.NullFraction(); frac != 0.5 {
		t.Errorf("unexpected null fraction: %f", frac)
	}

	var buf bytes.Buffer
	if err := d.Fprint(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], BaseKey+":") ||
		!strings.HasPrefix(lines[1], DenoisedKey+":") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
