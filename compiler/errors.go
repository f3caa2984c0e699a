package compiler

import "errors"

// Error kinds surfaced at compile time. All are caller/programming
// errors: none are retryable and none involve the network. Wrapped
// errors carry the offending property and fragment; test with errors.Is.
var (
	// ErrUnsupportedShape marks an AST node, operator or
	// function/arity combination the translator does not recognize.
	ErrUnsupportedShape = errors.New("unsupported expression shape")

	// ErrKeyCondition marks an operator or function used in a key
	// condition outside the legal subset for that key role.
	ErrKeyCondition = errors.New("operator not allowed in key condition")

	// ErrTypeMismatch marks a literal incompatible with the target
	// property's declared type or format.
	ErrTypeMismatch = errors.New("literal type mismatch")

	// ErrInvalidDiscriminatorPattern marks a malformed pattern reaching
	// the matcher. Primary validation happens at config build time;
	// this is defense in depth.
	ErrInvalidDiscriminatorPattern = errors.New("invalid discriminator pattern")

	// ErrMissingEncryptionProvider marks an update targeting an
	// encryption-required property with no encryptor configured.
	ErrMissingEncryptionProvider = errors.New("no encryption provider configured")
)
