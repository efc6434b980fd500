package iammetrics

import "errors"

var (
	// ErrDuplicateMetric is returned when a catalog metric is already registered
	// with the target registerer.
	ErrDuplicateMetric = errors.New("duplicate metric registration")
	// ErrRegistration is returned when a collector cannot be registered for a
	// reason other than a duplicate name.
	ErrRegistration = errors.New("metric registration failed")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrNilWriter is returned by Export when no sink is supplied.
	ErrNilWriter = errors.New("nil export writer")
	// ErrNilRealmDirectory is returned when a session refresh has no realm directory.
	ErrNilRealmDirectory = errors.New("nil realm directory")
	// ErrNilSessionDirectory is returned when a session refresh has no session directory.
	ErrNilSessionDirectory = errors.New("nil session directory")
	// ErrGather is returned when the underlying gatherer fails to snapshot metrics.
	ErrGather = errors.New("gather metrics")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)
