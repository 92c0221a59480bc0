/*
Package config loads recovery settings from files and the environment.

# Files

FromFile reads YAML (.yaml, .yml) or JSON (.json). Keys are snake_case and
unknown keys are an error:

	source: /dev/sdb
	destination: ./recovered
	types: [jpg, pdf]     # or "jpg,pdf"
	chunk_size: 4096
	workers: 5
	checksum: blake3

# Environment

FromEnv reads the same settings from SIGCARVE_* variables:

	SIGCARVE_SOURCE=/dev/sdb
	SIGCARVE_OUT=./recovered
	SIGCARVE_TYPES=jpg,pdf
	SIGCARVE_CHUNK_SIZE=4096

# Layering

Merge layers sources; later layers win for every field they set:

	settings := config.Merge(config.Merge(fromFile, fromEnv), fromFlags)

Boolean switches can only be turned on by a later layer.
*/
package config
