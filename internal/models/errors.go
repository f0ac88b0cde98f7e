package models

import (
	"errors"
	"fmt"
)

// InvalidTripError reports a stop sequence that cannot be planned
type InvalidTripError struct {
	Field string
	Msg   string
}

func (e InvalidTripError) Error() string {
	if e.Field != "" && e.Msg != "" {
		return fmt.Sprintf("invalid trip: %s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return "invalid trip: " + e.Msg
	}
	return "invalid trip"
}

// NotFoundError reports a name missing from a directory
type NotFoundError struct {
	Resource string
	Name     string
	Err      error
}

func (e NotFoundError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "resource"
	}
	if e.Name == "" {
		return resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", resource, e.Name)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// FetchError reports a schedule provider failure for one stop-pair
type FetchError struct {
	From string
	To   string
	Err  error
}

func (e FetchError) Error() string {
	if e.From == "" && e.To == "" {
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("fetch failed for %s->%s: %v", e.From, e.To, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

func IsInvalidTrip(err error) bool {
	var target InvalidTripError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsFetchFailed(err error) bool {
	var target FetchError
	return errors.As(err, &target)
}
