// Package config holds the measurement settings: arena size, page size,
// exchange encoding and the archive destination.
//
// Settings come from Default, an optional ini file (Load) and SCOREDEF_*
// environment variables (ApplyEnv), in that order. Sizes accept plain byte
// counts, humanized values ("16 MiB", "8kB") and the short binary form
// "16000k", where k, m and g are powers of 1024.
package config
