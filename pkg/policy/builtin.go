package policy

// BuiltinPolicies returns the policies shipped with the engine.
func BuiltinPolicies() []Policy {
	return []Policy{
		backendEncryptionPolicy(),
		prodLockTablePolicy(),
		requiredProjectPolicy(),
	}
}

// backendEncryptionPolicy blocks cells whose remote state would be stored
// unencrypted.
func backendEncryptionPolicy() Policy {
	return Policy{
		Name:        "backend-encryption",
		Description: "Remote state must be encrypted at rest",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"backend", "security"},
		Rego: `package cloudweave.policies.backend_encryption

import rego.v1

deny contains violation if {
	input.backend
	input.backend.encrypt == false
	violation := {
		"message": sprintf("backend state for %s/%s is not encrypted", [input.cloud, input.module]),
		"severity": "error",
	}
}
`,
	}
}

// prodLockTablePolicy blocks applies against prod without a state lock
// table configured.
func prodLockTablePolicy() Policy {
	return Policy{
		Name:        "prod-lock-table",
		Description: "Applying to prod requires a state lock table",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"backend", "prod"},
		Rego: `package cloudweave.policies.prod_lock_table

import rego.v1

deny contains violation if {
	input.environment == "prod"
	input.action == "apply"
	input.backend
	not input.backend.dynamodb_table
	violation := {
		"message": sprintf("apply to prod for %s/%s requires a state lock table", [input.cloud, input.module]),
		"severity": "error",
	}
}
`,
	}
}

// requiredProjectPolicy warns when the merged variables carry no project
// identifier, which makes cost attribution impossible downstream.
func requiredProjectPolicy() Policy {
	return Policy{
		Name:        "required-project",
		Description: "Merged variables should carry a project identifier",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"variables", "conventions"},
		Rego: `package cloudweave.policies.required_project

import rego.v1

deny contains violation if {
	not input.variables.project
	violation := {
		"message": sprintf("cell %s/%s has no project variable", [input.cloud, input.module]),
		"severity": "warning",
	}
}
`,
	}
}
