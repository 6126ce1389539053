// Package output renders wallet results for micropay-client.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned text tables
//   - json.go, yaml.go: machine-readable output
//   - views.go: table layouts for snapshots, peers and pending credits
package output
