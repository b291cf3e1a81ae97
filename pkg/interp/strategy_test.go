package interp

import "testing"

func TestParseMethodRoundTrip(t *testing.T) {
	for m := MethodNearest; m <= MethodSpaceAdjustedIDW; m++ {
		got, err := ParseMethod(m.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q) error = %v", m.String(), err)
		}
		if got != m {
			t.Errorf("ParseMethod(%q) = %v, want %v", m.String(), got, m)
		}
	}
	if _, err := ParseMethod("kriging"); err == nil {
		t.Error("expected error for unknown method")
	}
	if m, err := ParseMethod(" IDW "); err != nil || m != MethodIDW {
		t.Errorf("ParseMethod(\" IDW \") = %v, %v", m, err)
	}
}

func TestOptionsStrategy(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want Strategy
	}{
		{"nearest", Options{Method: MethodNearest}, Nearest{}},
		{"idw default power", Options{Method: MethodIDW}, IDW{Power: DefaultPower}},
		{"idw explicit power", Options{Method: MethodIDW, Power: 4}, IDW{Power: 4}},
		{"space adjusted", Options{Method: MethodSpaceAdjustedIDW}, SpaceAdjustedIDW{Power: DefaultPower}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Strategy()
			if err != nil {
				t.Fatalf("Strategy error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Strategy = %#v, want %#v", got, tt.want)
			}
		})
	}

	if _, err := (Options{Method: Method(42)}).Strategy(); err == nil {
		t.Error("expected error for unknown method")
	}
}
