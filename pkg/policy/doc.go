// Package policy implements the OPA/rego policy gate. Policies are
// evaluated per cell against the merged variables and backend descriptor,
// after the merge and before any artifact write or process invocation.
// Error and critical violations fail the cell at the policy stage; lower
// severities are advisory. Extra policies load from a directory of .rego
// files, optionally watched for changes.
package policy
