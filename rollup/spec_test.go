package rollup

import (
	"testing"

	"github.com/eth2030/evmcore/core/vm"
)

func TestEVMSpec(t *testing.T) {
	tests := []struct {
		spec SpecID
		want vm.SpecID
	}{
		{Bedrock, vm.Merge},
		{Regolith, vm.Merge},
		{Canyon, vm.Shanghai},
		{Ecotone, vm.Cancun},
		{Fjord, vm.Cancun},
		{Granite, vm.Cancun},
		{Holocene, vm.Cancun},
		{Isthmus, vm.Prague},
	}
	for _, tt := range tests {
		if got := tt.spec.EVMSpec(); got != tt.want {
			t.Errorf("%s: have %s, want %s", tt.spec, got, tt.want)
		}
		parsed, err := ParseSpecID(tt.spec.String())
		if err != nil || parsed != tt.spec {
			t.Errorf("parse %s: have %v, %v", tt.spec, parsed, err)
		}
	}
	if _, err := ParseSpecID("london"); err == nil {
		t.Fatal("expected error for unknown spec")
	}
}

func TestPrecompilesFor(t *testing.T) {
	if PrecompilesFor(Ecotone).Contains(vm.P256VerifyAddress) {
		t.Fatal("p256Verify active before fjord")
	}
	if !PrecompilesFor(Ecotone).Contains(vm.PointEvaluationAddress) {
		t.Fatal("point evaluation missing at ecotone")
	}
	if PrecompilesFor(Canyon).Contains(vm.PointEvaluationAddress) {
		t.Fatal("point evaluation active before ecotone")
	}

	set := PrecompilesFor(Fjord)
	p, ok := set.Get(vm.P256VerifyAddress)
	if !ok {
		t.Fatal("p256Verify missing at fjord")
	}
	if gas := p.Gas(vm.Osaka); gas != vm.P256VerifyGas {
		t.Fatalf("p256Verify gas: have %d, want %d", gas, vm.P256VerifyGas)
	}
	if set.Contains(vm.BLS12G1AddAddress) {
		t.Fatal("bls12G1Add active before isthmus")
	}
	if !PrecompilesFor(Isthmus).Contains(vm.BLS12G1AddAddress) {
		t.Fatal("bls12G1Add missing at isthmus")
	}
}
