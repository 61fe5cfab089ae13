package config

// Document is the parsed configuration document: a mapping from environment
// name to its deployment configuration. Immutable after load.
type Document struct {
	// Environments maps environment names (dev, prod, ...) to their
	// configuration.
	Environments map[string]*Environment `yaml:"environments" validate:"required,min=1,dive,required"`
}

// Environment is one named deployment target.
type Environment struct {
	// Name is the environment name, filled in from the document key.
	Name string `yaml:"-"`

	// Common is the lowest-precedence variable layer, shared by every
	// cloud and module of the environment.
	Common map[string]any `yaml:"common"`

	// Backend holds the remote-state backend settings. When nil, no
	// backend descriptor is written and the tool falls back to local state.
	Backend *BackendSettings `yaml:"backend"`

	// Clouds maps cloud-provider names to their configuration.
	Clouds map[string]*Cloud `yaml:"clouds" validate:"dive,required"`
}

// BackendSettings describes where the provisioning tool stores and locks its
// remote state.
type BackendSettings struct {
	// Bucket is the state storage location.
	Bucket string `yaml:"bucket" validate:"required"`

	// Region is the storage region.
	Region string `yaml:"region" validate:"required"`

	// Encrypt enables state encryption at rest. Defaults to true.
	Encrypt *bool `yaml:"encrypt"`

	// DynamoDBTable is the optional lock-table identifier.
	DynamoDBTable string `yaml:"dynamodb_table"`

	// Profile is the optional local credential profile. Stripped in
	// automated-pipeline context, where credentials arrive through the
	// process environment.
	Profile string `yaml:"profile"`

	// KMSKeyID is the optional encryption key identifier.
	KMSKeyID string `yaml:"kms_key_id"`
}

// Encrypted reports the effective encryption flag, defaulting to true.
func (b *BackendSettings) Encrypted() bool {
	if b == nil || b.Encrypt == nil {
		return true
	}
	return *b.Encrypt
}

// Cloud is the configuration of one provider within an environment.
type Cloud struct {
	// Enabled gates the whole cloud. Defaults to true; a disabled cloud is
	// never executed regardless of filters.
	Enabled *bool `yaml:"enabled"`

	// Settings holds the cloud-level variable layer (region, network CIDR,
	// ...). Every document key that is not `enabled` or `modules` lands
	// here.
	Settings map[string]any `yaml:",inline"`

	// Modules maps module names to their opaque settings.
	Modules map[string]ModuleSettings `yaml:"modules"`
}

// IsEnabled reports the effective enabled flag, defaulting to true.
func (c *Cloud) IsEnabled() bool {
	if c == nil {
		return false
	}
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ModuleSettings is the opaque, pass-through variable layer of one module.
// The merger never interprets it.
type ModuleSettings map[string]any
