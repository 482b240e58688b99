// Package buildtool wraps the external build tool behind a structured
// contract.
//
// A recipe's build script must answer two query targets: one listing the
// auxiliary files it needs staged (requires) and one listing the files it
// produced (provides), each as newline-delimited names on stdout. The client
// translates exit status and the tool's missing-target signature into a
// TargetResult variant so no caller ever scans tool output.
package buildtool
