// Package config loads and validates the firegate configuration.
//
// # Formats
//
// The file format is chosen by extension: .hcl (the default), .json, or
// .yaml/.yml. HCL files may call env("NAME") to read an environment
// variable:
//
//	secret = env("WEBHOOK_SECRET")
//	zone   = "public"
//
//	audit {
//	  enabled        = true
//	  retention_days = 30
//	}
//
// # Environment
//
// A .env file next to the config file is loaded first without overriding
// variables that are already set. FIREGATE_SECRET, FIREGATE_ZONE,
// FIREGATE_PORT and FIREGATE_FOLDER then override the file.
package config
