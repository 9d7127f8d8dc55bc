// Package logs reads xlmerge run logs back for the CLI "logs" command.
package logs
