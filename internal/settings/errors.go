package settings

import "github.com/joseph-ayodele/tracking-recovery/internal/common"

func invalid(msg string, cause error) error {
	if cause == nil {
		cause = common.ErrInvalidInput
	}
	return common.NewAppError(common.CodeConfig, msg, cause)
}
