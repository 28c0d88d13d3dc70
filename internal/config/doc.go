// Package config loads the server configuration from YAML and the
// environment.
//
// Load starts from Default, reads the YAML file when a path is given, then
// applies the environment:
//
//   - BLUEPRINT_MCP_LOG_LEVEL: debug or info
//   - BLUEPRINT_MCP_STORAGE_ROOT: directory for relative drawing paths
//   - BLUEPRINT_MCP_LANGUAGE: OCR language
//   - BLUEPRINT_MCP_VISION_URL, BLUEPRINT_MCP_VISION_KEY: remote analysis service
//
// Validate repairs out-of-range values from the defaults and rejects the
// ones it cannot repair.
package config
