package exceptions

import (
	"strings"

	"github.com/sagernet/sing-slist/common"
)

type multiError struct {
	errors []error
}

func (e *multiError) Error() string {
	return strings.Join(common.Map(e.errors, error.Error), " | ")
}

func (e *multiError) Unwrap() []error {
	return e.errors
}

// Errors joins the non-nil errors, returning nil if there are none and the
// error itself if there is exactly one.
func Errors(errors ...error) error {
	errors = common.Filter(errors, func(it error) bool {
		return it != nil
	})
	switch len(errors) {
	case 0:
		return nil
	case 1:
		return errors[0]
	}
	return &multiError{errors}
}
