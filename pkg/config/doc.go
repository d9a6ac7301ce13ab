// ABOUTME: Configuration package documentation
// ABOUTME: Describes the decoder block file format
// Package config loads decoder blocks.
//
// A config file is JSON with one entry per backend:
//
//	{
//	  "decoder": [
//	    {"plugin": "tone", "enabled": "yes", "frequency": 440},
//	    {"plugin": "flac", "codecs": "flac, oga"}
//	  ]
//	}
//
// Values may be strings, numbers or booleans; getters convert on read.
package config
