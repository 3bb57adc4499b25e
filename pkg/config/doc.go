// Package config loads a connection profile from YAML and assembles the
// dialer, link manager and event loggers it describes.
//
// Example profile:
//
//	address: broker.example.com:8883
//	peer_verify: enabled
//	security_tags: [42]
//	credentials_dir: /etc/lteconn/credentials
//	connect_timeout: 30s
//	log_file: /var/log/lteconn/events.clog
//	link:
//	  attach_timeout: 2m
//	  backoff:
//	    initial: 500ms
//	    max: 10s
//	mdns:
//	  interface: wlan0
package config
