package errors

import "fmt"

func InvalidParamsErr(err error) error {
	return E(Invalid, "invalid params", err)
}

func ValidationFailedErr(err error) error {
	return E(Invalid, "validation failed", err)
}

func EmptyParamErr(field string) error {
	ve := ValidationErrs()
	ve.Add(field, "cannot be empty")
	return E(Invalid, "validation failed", ve.Err())
}

// OutOfRangeErr returns an invalid-argument error for a parameter outside [min, max]
func OutOfRangeErr(field string, value, min, max float64) error {
	ve := ValidationErrs()
	ve.Add(field, fmt.Sprintf("must be between %v and %v, got %v", min, max, value))
	return E(Invalid, "validation failed", ve.Err())
}

func NotFoundErr(entity, id string) error {
	return E(NotFound, fmt.Sprintf("%s %s", entity, id), nil)
}

func UnavailableErr(target string, err error) error {
	return E(Unavailable, target, err)
}

func TimeoutErr(what string) error {
	return E(Timeout, what, nil)
}

func MalformedErr(source string, err error) error {
	return E(Malformed, source, err)
}
