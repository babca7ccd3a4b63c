package validation

import "coverdance.app/internal/protocol"

type AcceptValidationInput struct {
	HasOffer       bool
	Available      bool
	AlreadyActive  bool
	BaseTraining   int
	MaxBase        int
	ActiveExtraSum int
	CapAfterAccept int
	PreFunding     int
	TrainingNeeded int
}

func ValidateAccept(in AcceptValidationInput) (ok bool, code string, msg string) {
	if !in.HasOffer {
		return false, protocol.ErrInvalidTarget, "project not found"
	}
	if !in.Available || in.AlreadyActive {
		return false, protocol.ErrConflict, "project not available"
	}
	if in.TrainingNeeded <= 0 {
		return false, protocol.ErrBadRequest, "project has no trainings"
	}
	if in.BaseTraining < 0 || in.BaseTraining > in.MaxBase {
		return false, protocol.ErrBadRequest, "bad base_training"
	}
	if in.PreFunding < 0 {
		return false, protocol.ErrBadRequest, "bad costume_saved_money"
	}
	if in.ActiveExtraSum > in.CapAfterAccept {
		return false, protocol.ErrConflict, "extra training cap exceeded"
	}
	return true, "", ""
}

type UpdateValidationInput struct {
	HasProject   bool
	Active       bool
	BaseTraining int
	MaxBase      int
	Extra        int
	MaxExtra     int
	OthersExtra  int
	Cap          int
}

func ValidateUpdate(in UpdateValidationInput) (ok bool, code string, msg string) {
	if !in.HasProject {
		return false, protocol.ErrInvalidTarget, "project not found"
	}
	if !in.Active {
		return false, protocol.ErrConflict, "project not active"
	}
	if in.BaseTraining < 0 || in.BaseTraining > in.MaxBase {
		return false, protocol.ErrBadRequest, "bad base_training"
	}
	if in.Extra < 0 || in.Extra > in.MaxExtra {
		return false, protocol.ErrBadRequest, "bad extra_training"
	}
	if in.OthersExtra+in.Extra > in.Cap {
		return false, protocol.ErrConflict, "extra training cap exceeded"
	}
	return true, "", ""
}

type ReserveValidationInput struct {
	HasProject bool
	Terminal   bool
	Amount     int
	Balance    int
	Held       int
	Cap        int
}

func ValidateReserve(in ReserveValidationInput) (ok bool, code string, msg string) {
	if !in.HasProject {
		return false, protocol.ErrInvalidTarget, "project not found"
	}
	if in.Terminal {
		return false, protocol.ErrConflict, "project closed"
	}
	if in.Amount < 0 {
		return false, protocol.ErrBadRequest, "bad amount"
	}
	if in.Held+in.Amount > in.Cap {
		return false, protocol.ErrConflict, "costume fund cap exceeded"
	}
	if in.Balance < in.Amount {
		return false, protocol.ErrNoResource, "insufficient money"
	}
	return true, "", ""
}

type CostumeValidationInput struct {
	HasProject bool
	Active     bool
	Requested  bool
	Locked     bool
	Match      int
}

func ValidateCostumeSubmit(in CostumeValidationInput) (ok bool, code string, msg string) {
	if !in.HasProject {
		return false, protocol.ErrInvalidTarget, "project not found"
	}
	if !in.Active {
		return false, protocol.ErrConflict, "project not active"
	}
	if !in.Requested {
		return false, protocol.ErrBlocked, "costume not requested yet"
	}
	if in.Locked {
		return false, protocol.ErrConflict, "costume already locked"
	}
	if in.Match < 0 || in.Match > 100 {
		return false, protocol.ErrBadRequest, "bad match percent"
	}
	return true, "", ""
}

type FundValidationInput struct {
	HasProject   bool
	Active       bool
	NeedsFunding bool
	Balance      int
	TrainingCost int
}

func ValidateFund(in FundValidationInput) (ok bool, code string, msg string) {
	if !in.HasProject {
		return false, protocol.ErrInvalidTarget, "project not found"
	}
	if !in.Active {
		return false, protocol.ErrConflict, "project not active"
	}
	if !in.NeedsFunding {
		return false, protocol.ErrConflict, "project does not need funding"
	}
	if in.Balance < in.TrainingCost {
		return false, protocol.ErrNoResource, "insufficient money"
	}
	return true, "", ""
}

type ReputationGateInput struct {
	Reputation    int
	MinReputation int
	Roll          float64
	RefusalChance float64
}

// ValidateReputation refuses an under-qualified player with the configured chance.
func ValidateReputation(in ReputationGateInput) (ok bool, code string, msg string) {
	if in.Reputation >= in.MinReputation {
		return true, "", ""
	}
	if in.Roll < in.RefusalChance {
		return false, protocol.ErrNoPermission, "leader refused: reputation too low"
	}
	return true, "", ""
}
