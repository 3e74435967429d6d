package idhash

import (
	"testing"

	"github.com/mr-tron/base58"

	"flexile-liquidation/internal/domain"
)

func TestComputePayoutID(t *testing.T) {
	tests := []struct {
		name         string
		scenarioID   int64
		investorID   int64
		securityType domain.SecurityType
		securityID   int64
	}{
		{
			name:         "equity holding",
			scenarioID:   1,
			investorID:   42,
			securityType: domain.SecurityTypeEquity,
			securityID:   7,
		},
		{
			name:         "convertible",
			scenarioID:   1,
			investorID:   42,
			securityType: domain.SecurityTypeConvertible,
			securityID:   7,
		},
		{
			name:         "large ids",
			scenarioID:   9_000_000_000,
			investorID:   8_000_000_000,
			securityType: domain.SecurityTypeEquity,
			securityID:   7_000_000_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePayoutID(tt.scenarioID, tt.investorID, tt.securityType, tt.securityID)

			decoded, err := base58.Decode(got)
			if err != nil {
				t.Fatalf("ComputePayoutID() is not base58: %v", err)
			}
			if len(decoded) != 32 {
				t.Errorf("decoded length = %d, want 32", len(decoded))
			}

			got2 := ComputePayoutID(tt.scenarioID, tt.investorID, tt.securityType, tt.securityID)
			if got != got2 {
				t.Errorf("ComputePayoutID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputePayoutID_DifferentInputs(t *testing.T) {
	base := ComputePayoutID(1, 2, domain.SecurityTypeEquity, 3)

	variants := map[string]string{
		"scenario":      ComputePayoutID(9, 2, domain.SecurityTypeEquity, 3),
		"investor":      ComputePayoutID(1, 9, domain.SecurityTypeEquity, 3),
		"security type": ComputePayoutID(1, 2, domain.SecurityTypeConvertible, 3),
		"security":      ComputePayoutID(1, 2, domain.SecurityTypeEquity, 9),
	}

	for name, got := range variants {
		if got == base {
			t.Errorf("different %s should produce different id", name)
		}
	}
}

func TestComputePayoutID_NoFieldAliasing(t *testing.T) {
	// 1|23 and 12|3 must not collide.
	a := ComputePayoutID(1, 23, domain.SecurityTypeEquity, 4)
	b := ComputePayoutID(12, 3, domain.SecurityTypeEquity, 4)
	if a == b {
		t.Error("separator should prevent field aliasing")
	}
}
