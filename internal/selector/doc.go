// Package selector turns "which recipe applies to this file" into a user
// choice, behind an interface so the lifecycle stays independent of any
// particular host surface.
package selector
