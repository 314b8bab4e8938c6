package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestProtocolTVLMissingFiguresAsNull(t *testing.T) {
	in := ChainTVL{
		Chain: "Ethereum",
		TVL:   100,
		Protocols: []ProtocolTVL{
			{Name: "a", TVL: 60, Dominance: 60, Change24h: 1.5, Change7d: -2},
			{Name: "b", TVL: 40, Dominance: 40, Change24h: math.NaN(), Change7d: math.Inf(1)},
		},
	}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"change_24h":null`) {
		t.Fatalf("expected null change in %s", b)
	}

	var out ChainTVL
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	a, missing := out.Protocols[0], out.Protocols[1]
	if a.Change24h != 1.5 || a.Change7d != -2 || a.TVL != 60 {
		t.Fatalf("reported figures changed: %+v", a)
	}
	if !math.IsNaN(missing.Change24h) || !math.IsNaN(missing.Change7d) || missing.TVL != 40 {
		t.Fatalf("missing figures should decode as NaN: %+v", missing)
	}
}
