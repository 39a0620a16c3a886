package reminder

import (
	"encoding/json"
	"fmt"
)

// ProjectFetchError records a project whose merge requests could not be retrieved.
type ProjectFetchError struct {
	Err     error
	Project string
}

func (e *ProjectFetchError) Error() string {
	return fmt.Sprintf("project %q: %v", e.Project, e.Err)
}

func (e *ProjectFetchError) Unwrap() error { return e.Err }

// MarshalJSON renders the error for run reports.
func (e *ProjectFetchError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Project string `json:"project"`
		Error   string `json:"error"`
	}{e.Project, errString(e.Err)})
}

// UnresolvableIdentityError records a reviewer with no known chat address.
// Err is nil when the profile lookup succeeded but carried no public email.
type UnresolvableIdentityError struct {
	Err      error
	Username string
}

func (e *UnresolvableIdentityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no chat address for %q: no override and no public email", e.Username)
	}
	return fmt.Sprintf("no chat address for %q: %v", e.Username, e.Err)
}

func (e *UnresolvableIdentityError) Unwrap() error { return e.Err }

// MarshalJSON renders the error for run reports.
func (e *UnresolvableIdentityError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Username string `json:"username"`
		Error    string `json:"error"`
	}{e.Username, e.Error()})
}

// DeliveryError records a chat message that could not be delivered.
type DeliveryError struct {
	Err      error
	Username string
	Address  string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %q (%s): %v", e.Username, e.Address, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// MarshalJSON renders the error for run reports.
func (e *DeliveryError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Username string `json:"username"`
		Address  string `json:"address"`
		Error    string `json:"error"`
	}{e.Username, e.Address, errString(e.Err)})
}

// ConfigurationError reports a missing or malformed setting. It is always fatal.
type ConfigurationError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("invalid configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
