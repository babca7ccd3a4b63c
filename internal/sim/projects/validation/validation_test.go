package validation

import (
	"testing"

	"coverdance.app/internal/protocol"
)

func TestValidateAccept(t *testing.T) {
	base := AcceptValidationInput{
		HasOffer:       true,
		Available:      true,
		BaseTraining:   2,
		MaxBase:        3,
		ActiveExtraSum: 5,
		CapAfterAccept: 5,
		TrainingNeeded: 4,
	}
	if ok, _, _ := ValidateAccept(base); !ok {
		t.Fatalf("expected valid accept")
	}
	bad := base
	bad.BaseTraining = 4
	if ok, code, _ := ValidateAccept(bad); ok || code != "E_BAD_REQUEST" {
		t.Fatalf("expected bad request, got ok=%v code=%s", ok, code)
	}
	over := base
	over.CapAfterAccept = 3
	if ok, code, _ := ValidateAccept(over); ok || code != "E_CONFLICT" {
		t.Fatalf("expected cap conflict, got ok=%v code=%s", ok, code)
	}
	missing := base
	missing.HasOffer = false
	if ok, code, _ := ValidateAccept(missing); ok || code != "E_INVALID_TARGET" {
		t.Fatalf("expected invalid target, got ok=%v code=%s", ok, code)
	}
}

func TestValidateUpdate(t *testing.T) {
	in := UpdateValidationInput{HasProject: true, Active: true, BaseTraining: 1, MaxBase: 3, Extra: 3, MaxExtra: 7, OthersExtra: 2, Cap: 5}
	if ok, _, _ := ValidateUpdate(in); !ok {
		t.Fatalf("expected 2+3 within cap 5")
	}
	in.Extra = 4
	if ok, code, _ := ValidateUpdate(in); ok || code != "E_CONFLICT" {
		t.Fatalf("expected cap conflict, got ok=%v code=%s", ok, code)
	}
	in.Extra = 8
	if ok, code, _ := ValidateUpdate(in); ok || code != "E_BAD_REQUEST" {
		t.Fatalf("expected range error, got ok=%v code=%s", ok, code)
	}
}

func TestValidateReserve(t *testing.T) {
	in := ReserveValidationInput{HasProject: true, Amount: 500, Balance: 1000, Held: 0, Cap: 2000}
	if ok, _, _ := ValidateReserve(in); !ok {
		t.Fatalf("expected valid reserve")
	}
	in.Balance = 100
	if ok, code, _ := ValidateReserve(in); ok || code != "E_NO_RESOURCE" {
		t.Fatalf("expected no resource, got ok=%v code=%s", ok, code)
	}
	in.Balance = 5000
	in.Held = 1800
	if ok, code, _ := ValidateReserve(in); ok || code != "E_CONFLICT" {
		t.Fatalf("expected cap conflict, got ok=%v code=%s", ok, code)
	}
}

func TestValidateCostumeSubmit(t *testing.T) {
	in := CostumeValidationInput{HasProject: true, Active: true, Requested: false, Match: 90}
	if ok, code, _ := ValidateCostumeSubmit(in); ok || code != "E_BLOCKED" {
		t.Fatalf("expected blocked before request, got ok=%v code=%s", ok, code)
	}
	in.Requested = true
	if ok, _, _ := ValidateCostumeSubmit(in); !ok {
		t.Fatalf("expected valid submit")
	}
	in.Locked = true
	if ok, code, _ := ValidateCostumeSubmit(in); ok || code != "E_CONFLICT" {
		t.Fatalf("expected locked conflict, got ok=%v code=%s", ok, code)
	}
}

func TestValidateFund(t *testing.T) {
	in := FundValidationInput{HasProject: true, Active: true, NeedsFunding: false, Balance: 500, TrainingCost: 100}
	if ok, code, _ := ValidateFund(in); ok || code != "E_CONFLICT" {
		t.Fatalf("expected conflict when not paused, got ok=%v code=%s", ok, code)
	}
	in.NeedsFunding = true
	if ok, _, _ := ValidateFund(in); !ok {
		t.Fatalf("expected valid fund")
	}
	in.Balance = 50
	if ok, code, _ := ValidateFund(in); ok || code != "E_NO_RESOURCE" {
		t.Fatalf("expected no resource, got ok=%v code=%s", ok, code)
	}
}

func TestValidateReputation(t *testing.T) {
	if ok, _, _ := ValidateReputation(ReputationGateInput{Reputation: 10, MinReputation: 5, Roll: 0}); !ok {
		t.Fatalf("qualified player must pass")
	}
	if ok, code, _ := ValidateReputation(ReputationGateInput{Reputation: 0, MinReputation: 5, Roll: 0.1, RefusalChance: 0.3}); ok || code != "E_NO_PERMISSION" {
		t.Fatalf("expected refusal, got ok=%v code=%s", ok, code)
	}
	if ok, _, _ := ValidateReputation(ReputationGateInput{Reputation: 0, MinReputation: 5, Roll: 0.5, RefusalChance: 0.3}); !ok {
		t.Fatalf("roll above chance must pass")
	}
}

func TestRejectionCodesAreProtocolCodes(t *testing.T) {
	type result struct {
		ok   bool
		code string
	}
	check := func(ok bool, code, _ string) result { return result{ok, code} }
	cases := map[string]result{
		"accept":   check(ValidateAccept(AcceptValidationInput{})),
		"busy":     check(ValidateAccept(AcceptValidationInput{HasOffer: true, Available: true, AlreadyActive: true})),
		"update":   check(ValidateUpdate(UpdateValidationInput{})),
		"reserve":  check(ValidateReserve(ReserveValidationInput{})),
		"costume":  check(ValidateCostumeSubmit(CostumeValidationInput{})),
		"fund":     check(ValidateFund(FundValidationInput{})),
		"no money": check(ValidateFund(FundValidationInput{HasProject: true, Active: true, NeedsFunding: true, TrainingCost: 100})),
	}
	for name, r := range cases {
		if r.ok || r.code == "" || !protocol.IsKnownCode(r.code) {
			t.Fatalf("%s: ok=%v code=%q", name, r.ok, r.code)
		}
	}
	if cases["busy"].code != protocol.ErrConflict || cases["no money"].code != protocol.ErrNoResource {
		t.Fatalf("codes=%+v", cases)
	}
}
