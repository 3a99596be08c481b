package oyster

import "github.com/PaulSpaurgen/interface-v2/constants"

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantPrimary Variant = "primary"
)

func InventoryStatusVariant(status string) Variant {
	switch status {
	case constants.StatusRunning, constants.StatusActive, constants.StatusCompleted:
		return VariantSuccess
	case constants.StatusInactive, constants.StatusStopped:
		return VariantError
	}
	return VariantPrimary
}

// InventoryDurationVariant flags jobs with less than a day of funds left as errors and
// less than three days as warnings.
func InventoryDurationVariant(durationLeft int64) Variant {
	switch {
	case durationLeft < constants.SecondsInDay:
		return VariantError
	case durationLeft < 3*constants.SecondsInDay:
		return VariantWarning
	}
	return VariantSuccess
}
