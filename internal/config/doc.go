// Package config loads sprout.json or sprout.yaml.
//
// A configuration file has four sections. Every field is optional and
// durations are strings accepted by time.ParseDuration:
//
//	runtime:
//	  renderDebounce: 30ms
//	  renderRetryInterval: 10ms
//	  maxRenderRetries: 5
//	  heartbeatInterval: 30s
//	  resultBuffer: 64
//	server:
//	  addr: localhost:7070
//	  readTimeout: 60s
//	  writeTimeout: 10s
//	  pingInterval: 30s
//	  maxMessageSize: 65536
//	  allowedOrigins: ["https://app.example.com"]
//	archive:
//	  historySize: 256
//	  bucket: sprout-patches
//	  prefix: dev/
//	  region: eu-west-1
//	  endpoint: http://localhost:9000
//	  pathStyle: true
//	  queue: 256
//	log:
//	  level: info
//	  format: json
//
// Unknown fields are rejected. Errors are *errors.SproutError values with
// codes in the E100 range.
package config
