package descriptor

import "testing"

func TestParseFullDescriptor(t *testing.T) {
	d := Parse("  JT 22 SAB AU/B 12pck 750ml ", Options{})

	if d.FullDescriptor != "JT 22 SAB AU/B 12pck 750ml" {
		t.Errorf("FullDescriptor = %q", d.FullDescriptor)
	}
	if d.BrandCode != "JT" || d.BrandName != "Jules Taylor" {
		t.Errorf("brand = %q/%q", d.BrandCode, d.BrandName)
	}
	if d.Vintage != "2022" {
		t.Errorf("Vintage = %q, want 2022", d.Vintage)
	}
	if d.VarietyCode != "SAB" || d.VarietyName != "Sauvignon Blanc" {
		t.Errorf("variety = %q/%q", d.VarietyCode, d.VarietyName)
	}
	if d.MarketCode != "au-b" {
		t.Errorf("MarketCode = %q, want au-b", d.MarketCode)
	}
	if d.PackCount != 12 {
		t.Errorf("PackCount = %d, want 12", d.PackCount)
	}
	if d.VolumeML != 750 {
		t.Errorf("VolumeML = %d, want 750", d.VolumeML)
	}
}

func TestParseFields(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      string
		opts    Options
		vintage string
		variety string
		market  string
		pack    int
		volume  int
	}{
		{name: "vintage pivot old", in: "JT 98 PIN", vintage: "1998", variety: "PIN"},
		{name: "four digit vintage", in: "Jules Taylor 2019 Chardonnay", vintage: "2019", variety: "CHR"},
		{name: "multi word variety", in: "JT LATE HARVEST SAUVIGNON 375ml", variety: "LHS", volume: 375},
		{name: "trailing market wins", in: "JT SAB AU/C KO", variety: "SAB", market: "kor"},
		{name: "slash pack", in: "OTQ ROSE/6P", variety: "ROS", pack: 6},
		{name: "multiplier pack", in: "JT PIG 6x750ml", variety: "PIG", pack: 6, volume: 750},
		{name: "single", in: "JT PIN SINGLE MAGNUM", variety: "PIN", pack: 1, volume: 1500},
		{name: "demi", in: "JT LHS DEMI", variety: "LHS", volume: 375},
		{name: "cases default", in: "JT SAB", opts: Options{UnitIsCases: true}, variety: "SAB", pack: 12},
		{name: "no pack without cases hint", in: "JT SAB", variety: "SAB"},
		{name: "pack count is not vintage", in: "JT SAB 12 PK", variety: "SAB", pack: 12},
		{name: "partial variety", in: "Marlborough Pinot Grigio", variety: "PIG"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Parse(tc.in, tc.opts)
			if d.Vintage != tc.vintage {
				t.Errorf("Vintage = %q, want %q", d.Vintage, tc.vintage)
			}
			if d.VarietyCode != tc.variety {
				t.Errorf("VarietyCode = %q, want %q", d.VarietyCode, tc.variety)
			}
			if d.MarketCode != tc.market {
				t.Errorf("MarketCode = %q, want %q", d.MarketCode, tc.market)
			}
			if d.PackCount != tc.pack {
				t.Errorf("PackCount = %d, want %d", d.PackCount, tc.pack)
			}
			wantVolume := tc.volume
			if wantVolume == 0 {
				wantVolume = DefaultVolumeML
			}
			if d.VolumeML != wantVolume {
				t.Errorf("VolumeML = %d, want %d", d.VolumeML, wantVolume)
			}
		})
	}
}

func TestParseNeverFailsOnEmpty(t *testing.T) {
	d := Parse("   ", Options{})
	if d.FullDescriptor != "" || d.VarietyCode != "" || d.VolumeML != DefaultVolumeML {
		t.Fatalf("unexpected descriptor for blank input: %+v", d)
	}
}

func TestCaseEquivalentsHalvesSixPacks(t *testing.T) {
	for _, raw := range []float64{1, 10, 37, 250.5} {
		d := Parse("JT 22 SAB 6PK", Options{UnitIsCases: true})
		if got := CaseEquivalents(raw, d.PackCount); got != raw/2 {
			t.Errorf("6PK: CaseEquivalents(%v) = %v, want %v", raw, got, raw/2)
		}

		d = Parse("JT 22 SAB 12PK", Options{UnitIsCases: true})
		if got := CaseEquivalents(raw, d.PackCount); got != raw {
			t.Errorf("12PK: CaseEquivalents(%v) = %v, want %v", raw, got, raw)
		}

		d = Parse("JT 22 SAB", Options{UnitIsCases: true})
		if got := CaseEquivalents(raw, d.PackCount); got != raw {
			t.Errorf("no pack: CaseEquivalents(%v) = %v, want %v", raw, got, raw)
		}
	}
}

func TestCaseEquivalentsNeverNegative(t *testing.T) {
	if got := CaseEquivalents(-5, 6); got != 0 {
		t.Fatalf("CaseEquivalents(-5) = %v, want 0", got)
	}
}
