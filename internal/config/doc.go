// Package config loads hello-pool settings from YAML or JSON files.
//
// The file format is chosen by extension (.yaml, .yml or .json):
//
//	server:
//	  addr: 127.0.0.1:7878
//	  sleep_delay: 5s
//	  read_timeout: 10s
//	  max_connections: 0      # 0 = unlimited
//	pool:
//	  name: http
//	  workers: 4
//	  fault_policy: recover   # or retire
//	admin:
//	  enabled: true
//	  addr: 127.0.0.1:9090
//	  broadcast_interval: 1s
//	log:
//	  level: info
//
// LoadFile parses a file, Validate checks it, and ToConfig converts it into a
// typed Config filled with Default values for anything left unset.
package config
