package cacheme

import (
	"fmt"
)

// DuplicateRegistrationError is returned by Registry.Register when the entity
// type already has options registered. Registration happens once at startup,
// so a duplicate is a configuration bug, not a runtime condition.
type DuplicateRegistrationError struct {
	Entity string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("cacheme: entity %q already registered", e.Entity)
}

// ConfigError reports an invalid option at construction or registration time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cacheme: invalid %s: %s", e.Field, e.Reason)
}

// InvalidationError aggregates per-tier failures from one invalidation pass.
// The dispatcher logs it and never propagates it to the mutating caller; only
// explicit Invalidate calls surface it.
type InvalidationError struct {
	Entity               string
	TableErr             error
	QuerysetErr          error
	PermanentTableErr    error
	PermanentQuerysetErr error
}

func (e *InvalidationError) Error() string {
	switch {
	case e.TableErr != nil && e.QuerysetErr != nil:
		return fmt.Sprintf("invalidate %q failed: table and queryset deletes failed: table=%v; queryset=%v",
			e.Entity, e.TableErr, e.QuerysetErr)
	case e.TableErr != nil:
		return fmt.Sprintf("invalidate %q: table delete failed: %v", e.Entity, e.TableErr)
	case e.QuerysetErr != nil:
		return fmt.Sprintf("invalidate %q: queryset delete failed: %v", e.Entity, e.QuerysetErr)
	case e.PermanentTableErr != nil && e.PermanentQuerysetErr != nil:
		return fmt.Sprintf("invalidate %q failed: permanent table and queryset deletes failed: table=%v; queryset=%v",
			e.Entity, e.PermanentTableErr, e.PermanentQuerysetErr)
	case e.PermanentTableErr != nil:
		return fmt.Sprintf("invalidate %q: permanent table delete failed: %v", e.Entity, e.PermanentTableErr)
	case e.PermanentQuerysetErr != nil:
		return fmt.Sprintf("invalidate %q: permanent queryset delete failed: %v", e.Entity, e.PermanentQuerysetErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Entity)
	}
}

func (e *InvalidationError) Unwrap() []error {
	errs := make([]error, 0, 4)
	if e.TableErr != nil {
		errs = append(errs, e.TableErr)
	}
	if e.QuerysetErr != nil {
		errs = append(errs, e.QuerysetErr)
	}
	if e.PermanentTableErr != nil {
		errs = append(errs, e.PermanentTableErr)
	}
	if e.PermanentQuerysetErr != nil {
		errs = append(errs, e.PermanentQuerysetErr)
	}
	return errs
}

func (e *InvalidationError) empty() bool {
	return e.TableErr == nil && e.QuerysetErr == nil &&
		e.PermanentTableErr == nil && e.PermanentQuerysetErr == nil
}
