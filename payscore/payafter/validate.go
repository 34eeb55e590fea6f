package payafter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// validateRequest checks the validate tags of req and reports the first
// failing field as ErrInvalidRequest.
func validateRequest(req any) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%w: %s failed %s=%s", ErrInvalidRequest, fe.Namespace(), fe.Tag(), fe.Param())
		}

		return fmt.Errorf("%w: %s failed %s", ErrInvalidRequest, fe.Namespace(), fe.Tag())
	}

	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}
