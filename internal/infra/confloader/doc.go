// Package confloader provides configuration loading for micropay binaries.
//
// It wraps koanf with a fixed source order and an fsnotify-based file
// watcher used for live reload.
//
// Priority (highest to lowest):
//
//  1. Values passed through LoadMap (command-line flags)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Defaults already present in the target struct
package confloader
