// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const pathReason = "path must be lower-case [a-z0-9_.-] segments separated by '/'"

// MinecraftNamespace is the namespace assumed for unqualified item identifiers.
const MinecraftNamespace Namespace = "minecraft"

var (
	// ErrInvalidNamespace is the sentinel error wrapped by InvalidNamespaceError.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrInvalidResourceLocation is the sentinel error wrapped by InvalidResourceLocationError.
	ErrInvalidResourceLocation = errors.New("invalid resource location")

	namespaceRegex = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	pathRegex      = regexp.MustCompile(`^[a-z0-9_.-]+(/[a-z0-9_.-]+)*$`)
)

type (
	// Namespace is the part of a resource location before the colon.
	Namespace string

	// InvalidNamespaceError is returned when a Namespace contains characters
	// outside [a-z0-9_.-] or is empty.
	InvalidNamespaceError struct {
		Value Namespace
	}

	// ResourceLocation is a fully qualified "namespace:path" identifier as
	// understood by the client's asset loader (e.g. "minecraft:leather").
	ResourceLocation string

	// InvalidResourceLocationError is returned when a ResourceLocation is not
	// of the form namespace:path with lower-case path segments.
	InvalidResourceLocationError struct {
		Value  string
		Reason string
	}
)

// String returns the string representation of the Namespace.
func (n Namespace) String() string { return string(n) }

// Validate returns an error if the namespace is not a legal asset namespace.
func (n Namespace) Validate() error {
	if !namespaceRegex.MatchString(string(n)) {
		return &InvalidNamespaceError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidNamespaceError.
func (e *InvalidNamespaceError) Error() string {
	return fmt.Sprintf("invalid namespace %q: must match [a-z0-9_.-]+", e.Value)
}

// Unwrap returns ErrInvalidNamespace for errors.Is() compatibility.
func (e *InvalidNamespaceError) Unwrap() error { return ErrInvalidNamespace }

// ParseResourceLocation parses s, qualifying it with def when no namespace is given.
func ParseResourceLocation(s string, def Namespace) (ResourceLocation, error) {
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = string(def), s
	}
	if err := Namespace(ns).Validate(); err != nil {
		return "", &InvalidResourceLocationError{Value: s, Reason: err.Error()}
	}
	if !pathRegex.MatchString(path) {
		return "", &InvalidResourceLocationError{Value: s, Reason: pathReason}
	}
	return ResourceLocation(ns + ":" + path), nil
}

// ValidatePath reports whether path is a legal resource-location path:
// lower-case [a-z0-9_.-] segments separated by '/'.
func ValidatePath(path string) error {
	if !pathRegex.MatchString(path) {
		return &InvalidResourceLocationError{Value: path, Reason: pathReason}
	}
	return nil
}

// NewResourceLocation joins a namespace and path without validating them.
func NewResourceLocation(ns Namespace, path string) ResourceLocation {
	return ResourceLocation(string(ns) + ":" + path)
}

// String returns the string representation of the ResourceLocation.
func (r ResourceLocation) String() string { return string(r) }

// Namespace returns the part before the colon.
func (r ResourceLocation) Namespace() Namespace {
	ns, _, _ := strings.Cut(string(r), ":")
	return Namespace(ns)
}

// Path returns the part after the colon.
func (r ResourceLocation) Path() string {
	_, path, _ := strings.Cut(string(r), ":")
	return path
}

// Validate returns an error unless the location is already fully qualified and well formed.
func (r ResourceLocation) Validate() error {
	if !strings.Contains(string(r), ":") {
		return &InvalidResourceLocationError{Value: string(r), Reason: "missing namespace"}
	}
	_, err := ParseResourceLocation(string(r), "")
	return err
}

// Error implements the error interface for InvalidResourceLocationError.
func (e *InvalidResourceLocationError) Error() string {
	return fmt.Sprintf("invalid resource location %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidResourceLocation for errors.Is() compatibility.
func (e *InvalidResourceLocationError) Unwrap() error { return ErrInvalidResourceLocation }
