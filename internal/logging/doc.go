// Package logging constructs the slog loggers used across cookbook.
//
// It offers a console handler for interactive use, a JSON handler for log
// files and scripting, attr helpers that keep field construction terse, and
// context helpers that stamp the active recipe, source file, working
// directory, and session correlation ID onto every record.
package logging
